package termgath

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/score"
	"github.com/programme-lv/autograder/internal/session"
	"github.com/programme-lv/autograder/internal/submission"
)

type TerminalGatherer struct {
	StartedAt time.Time

	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// NewWriter prints to w. Verbose also prints session starts and compiler
// output.
func NewWriter(w io.Writer, verbose bool) *TerminalGatherer {
	return &TerminalGatherer{StartedAt: time.Now(), out: w, verbose: verbose}
}

func (t *TerminalGatherer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *TerminalGatherer) StartRun(runID string, spec *gradespec.Spec) {
	t.StartedAt = time.Now()
	t.printf("== Grading started (%s mode, run %s) ==\n", spec.Mode, runID)
}

func (t *TerminalGatherer) SkipSubmission(sub submission.Submission, reason string) {
	if t.verbose {
		t.printf("-> Skipping %s: %s\n", sub.Key, reason)
	}
}

func (t *TerminalGatherer) StartSession(sub submission.Submission) {
	if t.verbose {
		t.printf("-> Grading %s's submission %s\n", sub.StudentName, sub.Key)
	}
}

func (t *TerminalGatherer) StartCompile(sub submission.Submission) {}

func (t *TerminalGatherer) FinishCompile(sub submission.Submission, success bool, output string) {
	if t.verbose && output != "" {
		t.printf("   compiler output for %s:\n%s\n", sub.Key, output)
	}
}

func (t *TerminalGatherer) FinishSession(sub submission.Submission, res gatherer.SessionResult) {
	frac := fmt.Sprintf("[%s/%s]", score.Format(res.Score), score.Format(res.TotalPoints))
	var tail string
	switch session.State(res.State) {
	case session.StateCompileFailed:
		tail = color.RedString("%s <!> Didn't compile", frac)
	case session.StateRunFailed:
		tail = color.RedString("%s <!> Crashed or Encountered an Error", frac)
	default:
		if score.FullMarks(res.Score, res.TotalPoints) {
			tail = color.GreenString(frac)
		} else {
			tail = color.YellowString(frac)
		}
	}
	t.printf("Grading %s's submission... %s\n", sub.StudentName, tail)
}

func (t *TerminalGatherer) FinishRun(res gatherer.RunResult, err error) {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	if err != nil {
		t.printf("%s\n", color.RedString("== Grading aborted after %s: %v ==", dur, err))
		return
	}
	t.printf("== Grading finished in %s ==\n", dur)
	t.printf("New/Updated Submissions: %d\n", res.Graded)
	t.printf("Total Submissions: %d\n", res.Total)
	if res.Graded > 0 {
		t.printf("Average Score: %s\n", score.Format(res.ScoreSum/float64(res.Graded)))
	}
}
