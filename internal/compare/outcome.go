// Package compare decides, unit by unit, whether a submission's output
// matches the reference.
package compare

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/programme-lv/autograder/internal/sandbox"
)

var (
	// ErrReference means the reference program itself failed. Every
	// submission would score zero so the run should stop.
	ErrReference = errors.New("reference program failed")
	// ErrReferenceOutput means the reference program did not write its
	// declared output file.
	ErrReferenceOutput = errors.New("reference output file not found")
)

// NotStartedMessage explains a student program that could not be executed
// at all, e.g. a compiler that exited cleanly without writing a binary.
const NotStartedMessage = "Your program could not be started, no executable was produced"

type Verdict string

const (
	VerdictMatch    Verdict = "match"
	VerdictMismatch Verdict = "mismatch"
	VerdictMissing  Verdict = "missing"
	VerdictErrored  Verdict = "errored"
)

type Unit struct {
	Verdict Verdict
	// Input is the driver line the unit was produced from, if any.
	Input    string
	Expected string
	Actual   string
	// Error is the student's run diagnostic for errored units.
	Error string
}

type FailureKind string

const (
	FailureRun           FailureKind = "run_failed"
	FailureMissingOutput FailureKind = "missing_output"
)

// Failure marks a submission whose output could not be compared at all.
type Failure struct {
	Kind       FailureKind
	Diagnostic string
}

type Outcome struct {
	Units   []Unit
	Failure *Failure
}

func (o *Outcome) Matches() int {
	n := 0
	for _, u := range o.Units {
		if u.Verdict == VerdictMatch {
			n++
		}
	}
	return n
}

// Problems returns the units that did not match, in order.
func (o *Outcome) Problems() []Unit {
	var res []Unit
	for _, u := range o.Units {
		if u.Verdict != VerdictMatch {
			res = append(res, u)
		}
	}
	return res
}

// Program is an executable with the arguments it is always run with.
type Program struct {
	Path string
	Args []string
}

func (p Program) command(dir string, timeout time.Duration, stdin *string) sandbox.Command {
	return sandbox.Command{
		Path:    p.Path,
		Args:    p.Args,
		Dir:     dir,
		Stdin:   stdin,
		Timeout: timeout,
	}
}

// runStudent reports a student program that cannot be started as a failed
// run rather than an error.
func runStudent(ctx context.Context, c sandbox.Command) (*sandbox.Result, error) {
	res, err := sandbox.Run(ctx, c)
	if errors.Is(err, sandbox.ErrStart) {
		return &sandbox.Result{Outcome: sandbox.OutcomeExit, ExitCode: -1, Diagnostic: NotStartedMessage}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run submission: %w", err)
	}
	return res, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// Normalizer collapses whitespace runs to a single space, trims the ends
// and, unless CaseSensitive, lowercases.
type Normalizer struct {
	CaseSensitive bool
}

func (n Normalizer) Normalize(s string) string {
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if !n.CaseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

func (n Normalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

func (n Normalizer) unit(input, expected, actual string) Unit {
	u := Unit{Input: input, Expected: expected, Actual: actual, Verdict: VerdictMismatch}
	if n.Equal(expected, actual) {
		u.Verdict = VerdictMatch
	}
	return u
}

// splitLines splits text into lines without their terminators. A trailing
// newline does not produce an extra empty line.
func splitLines(s string) []string {
	s = strings.TrimSuffix(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
