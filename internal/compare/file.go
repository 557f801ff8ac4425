package compare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/programme-lv/autograder/internal/sandbox"
)

// File runs the reference and the student once each. Both read the shared
// input file themselves and write their own output file, which are then
// compared line by line.
type File struct {
	Reference Program
	Student   Program
	Dir       string
	Timeout   time.Duration
	// Input is the generated input file, used only to label units.
	Input           string
	ReferenceOutput string
	StudentOutput   string
	Normalizer
}

// Compare only considers lines present in both outputs. Lines beyond the
// shorter file are not penalized individually.
func (f File) Compare(ctx context.Context) (*Outcome, error) {
	refPath := f.path(f.ReferenceOutput)
	stuPath := f.path(f.StudentOutput)
	for _, p := range []string{refPath, stuPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale output: %w", err)
		}
	}

	ref, err := sandbox.Run(ctx, f.Reference.command(f.Dir, f.Timeout, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to run reference: %w", err)
	}
	if !ref.Succeeded {
		return nil, fmt.Errorf("%w: %s", ErrReference, ref.Diagnostic)
	}
	refData, err := os.ReadFile(refPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReferenceOutput, refPath)
		}
		return nil, fmt.Errorf("failed to read reference output: %w", err)
	}

	stu, err := runStudent(ctx, f.Student.command(f.Dir, f.Timeout, nil))
	if err != nil {
		return nil, err
	}
	if !stu.Succeeded {
		return &Outcome{Failure: &Failure{Kind: FailureRun, Diagnostic: stu.Diagnostic}}, nil
	}

	stuData, err := os.ReadFile(stuPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Outcome{Failure: &Failure{Kind: FailureMissingOutput}}, nil
		}
		return nil, fmt.Errorf("failed to read student output: %w", err)
	}

	var inputs []string
	if f.Input != "" {
		data, err := os.ReadFile(f.path(f.Input))
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		inputs = splitLines(string(data))
	}

	refLines := splitLines(string(refData))
	stuLines := splitLines(string(stuData))
	n := min(len(refLines), len(stuLines))

	out := &Outcome{Units: make([]Unit, 0, n)}
	for i := range n {
		var input string
		if i < len(inputs) {
			input = inputs[i]
		}
		out.Units = append(out.Units, f.unit(input, refLines[i], stuLines[i]))
	}
	return out, nil
}

func (f File) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(f.Dir, name)
}
