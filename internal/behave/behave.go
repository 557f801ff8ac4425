// Package behave runs end-to-end grading scenarios described in TOML.
package behave

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/grader"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/results"
	"github.com/programme-lv/autograder/internal/session"
	"github.com/programme-lv/autograder/internal/source/dirsource"
	"github.com/programme-lv/autograder/internal/workspace"
)

// SpecDirPlaceholder is replaced with the scenario's spec directory in
// every command string of the inline spec.
const SpecDirPlaceholder = "{spec_dir}"

// SpecFile is a file written before the run
type SpecFile struct {
	Name    string `toml:"name"`
	Content string `toml:"content"`
	Exec    bool   `toml:"exec"`
}

// SpecStudent is the expected result for one student
type SpecStudent struct {
	Name             string   `toml:"name"`
	Score            *float64 `toml:"score"`
	State            string   `toml:"state"`
	FeedbackContains []string `toml:"feedback_contains"`
}

// SpecExpect describes the expected outcome of the whole run
type SpecExpect struct {
	// Error is a substring of the expected fatal error. Empty means the
	// run must succeed.
	Error    string        `toml:"error"`
	Total    *int          `toml:"total"`
	Graded   *int          `toml:"graded"`
	Students []SpecStudent `toml:"students"`
}

type specScenario struct {
	Description string        `toml:"description"`
	Spec        gradespec.Raw `toml:"spec"`
	Files       []SpecFile    `toml:"files"`
	Submissions []SpecFile    `toml:"submissions"`
	Expect      SpecExpect    `toml:"expect"`
}

type specRoot struct {
	Scenarios []specScenario `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML
type Case struct {
	Name        string
	Spec        gradespec.Raw
	Files       []SpecFile
	Submissions []SpecFile
	Expect      SpecExpect
}

// Parse reads a behaviour TOML file and converts it to runnable cases
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cases := make([]Case, 0, len(root.Scenarios))
	for i, sc := range root.Scenarios {
		name := sc.Description
		if name == "" {
			name = fmt.Sprintf("scenario %d", i+1)
		}
		if len(sc.Submissions) == 0 && sc.Expect.Error == "" {
			return nil, fmt.Errorf("%s: no submissions and no expected error", name)
		}
		cases = append(cases, Case{
			Name:        name,
			Spec:        sc.Spec,
			Files:       sc.Files,
			Submissions: sc.Submissions,
			Expect:      sc.Expect,
		})
	}
	return cases, nil
}

// Result is the outcome of running one case. Failures lists every
// expectation that did not hold.
type Result struct {
	Case     Case
	Summary  *grader.Summary
	Err      error
	Failures []string
}

func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run grades the case's submissions in a fresh layout under workDir. The
// returned error is reserved for failures to set the scenario up.
func Run(ctx context.Context, c Case, workDir string, gath gatherer.Gatherer, log *slog.Logger) (*Result, error) {
	specDir := filepath.Join(workDir, "spec")
	incoming := filepath.Join(workDir, "incoming")
	for _, d := range []string{specDir, incoming} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	if err := writeFiles(specDir, c.Files); err != nil {
		return nil, err
	}
	if err := writeFiles(incoming, c.Submissions); err != nil {
		return nil, err
	}

	res := &Result{Case: c}

	raw := expandSpecDir(c.Spec, specDir)
	spec, err := raw.Build(specDir)
	if err != nil {
		res.Err = err
		res.check()
		return res, nil
	}

	ws, err := workspace.New(filepath.Join(workDir, "grade"), log)
	if err != nil {
		return nil, err
	}
	g, err := grader.New(grader.Config{
		Spec:      spec,
		Workspace: ws,
		Source:    dirsource.New(incoming, nil),
		Gatherer:  gath,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	res.Summary, res.Err = g.Run(ctx)
	res.check()
	return res, nil
}

func (r *Result) failf(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

func (r *Result) check() {
	exp := r.Case.Expect
	if exp.Error != "" {
		if r.Err == nil {
			r.failf("expected error containing %q, run succeeded", exp.Error)
		} else if !strings.Contains(r.Err.Error(), exp.Error) {
			r.failf("expected error containing %q, got %q", exp.Error, r.Err.Error())
		}
		return
	}
	if r.Err != nil {
		r.failf("unexpected error: %v", r.Err)
		return
	}

	sum := r.Summary
	if exp.Total != nil && *exp.Total != sum.Total {
		r.failf("total: expected %d, got %d", *exp.Total, sum.Total)
	}
	if exp.Graded != nil && *exp.Graded != sum.Graded {
		r.failf("graded: expected %d, got %d", *exp.Graded, sum.Graded)
	}

	rows, err := results.ReadCSV(sum.ResultsPath)
	if err != nil {
		r.failf("%v", err)
	} else if len(rows) != sum.Graded {
		r.failf("results file has %d rows, graded %d", len(rows), sum.Graded)
	}

	for _, st := range exp.Students {
		rec := findRecord(sum, st.Name)
		if rec == nil {
			r.failf("%s: not graded", st.Name)
			continue
		}
		if st.Score != nil && *st.Score != rec.Score {
			r.failf("%s: expected score %v, got %v", st.Name, *st.Score, rec.Score)
		}
		if st.State != "" && st.State != string(rec.State) {
			r.failf("%s: expected state %s, got %s", st.Name, st.State, rec.State)
		}
		if len(st.FeedbackContains) == 0 {
			continue
		}
		fb, err := os.ReadFile(rec.FeedbackPath)
		if err != nil {
			r.failf("%s: %v", st.Name, err)
			continue
		}
		for _, want := range st.FeedbackContains {
			if !strings.Contains(string(fb), want) {
				r.failf("%s: feedback does not contain %q", st.Name, want)
			}
		}
	}
}

func findRecord(sum *grader.Summary, student string) *session.Record {
	for _, rec := range sum.Records {
		if rec.StudentName == student {
			return rec
		}
	}
	return nil
}

func writeFiles(dir string, files []SpecFile) error {
	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name {
			return fmt.Errorf("invalid scenario file name %q", f.Name)
		}
		mode := os.FileMode(0644)
		if f.Exec {
			mode = 0755
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name), []byte(f.Content), mode); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	return nil
}

func expandSpecDir(raw gradespec.Raw, dir string) gradespec.Raw {
	for _, field := range []**string{
		&raw.Compiler, &raw.Interpreter,
		&raw.BuildCommand, &raw.CompileCommand, &raw.RunCommand,
	} {
		if *field == nil {
			continue
		}
		v := strings.ReplaceAll(**field, SpecDirPlaceholder, dir)
		*field = &v
	}
	return raw
}
