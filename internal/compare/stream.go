package compare

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/programme-lv/autograder/internal/sandbox"
)

// Stream feeds every driver line to the reference and the student program
// on stdin and compares their whole stdout.
type Stream struct {
	Reference Program
	Student   Program
	Dir       string
	Timeout   time.Duration
	Normalizer
}

// CompareFile reads the driver lines from path and runs Compare.
func (s Stream) CompareFile(ctx context.Context, path string) (*Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read driver file: %w", err)
	}
	return s.Compare(ctx, splitLines(string(data)))
}

// Compare runs one unit per input line. A failing student run scores zero
// for that line and the remaining lines still run.
func (s Stream) Compare(ctx context.Context, inputs []string) (*Outcome, error) {
	out := &Outcome{}
	for _, line := range inputs {
		stdin := line + "\n"

		ref, err := sandbox.Run(ctx, s.Reference.command(s.Dir, s.Timeout, &stdin))
		if err != nil {
			return nil, fmt.Errorf("failed to run reference: %w", err)
		}
		if !ref.Succeeded {
			return nil, fmt.Errorf("%w on input %q: %s", ErrReference, line, ref.Diagnostic)
		}

		stu, err := runStudent(ctx, s.Student.command(s.Dir, s.Timeout, &stdin))
		if err != nil {
			return nil, err
		}
		if !stu.Succeeded {
			out.Units = append(out.Units, Unit{
				Verdict:  VerdictErrored,
				Input:    line,
				Expected: ref.Stdout,
				Actual:   stu.Stdout,
				Error:    stu.Diagnostic,
			})
			continue
		}

		out.Units = append(out.Units, s.unit(line, ref.Stdout, stu.Stdout))
	}
	return out, nil
}
