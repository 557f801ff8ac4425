// Package results reads and writes the headerless results CSV with one
// row per graded submission: name, id, score, feedback path.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/programme-lv/autograder/internal/score"
)

const FileName = "results.csv"

type Row struct {
	StudentName  string
	StudentID    string
	Score        float64
	FeedbackPath string
	// Attachments are published with the grade but not written to the CSV.
	Attachments []string
}

// WriteCSV writes rows through a temp file renamed over path, so readers
// see either the old file or the complete new one.
func WriteCSV(path string, rows []Row) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".results-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod results file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move results file into place: %w", err)
	}
	return nil
}

func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	for _, r := range rows {
		rec := []string{r.StudentName, r.StudentID, score.Format(r.Score), r.FeedbackPath}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write results row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	rows := make([]Row, 0, len(recs))
	for i, rec := range recs {
		sc, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("results line %d: invalid score %q", i+1, rec[2])
		}
		rows = append(rows, Row{StudentName: rec[0], StudentID: rec[1], Score: sc, FeedbackPath: rec[3]})
	}
	return rows, nil
}
