// Package gatherer defines the events a grading run reports while it
// progresses. Backends print them, stream them or collect them in memory.
package gatherer

import (
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/submission"
)

// Gatherer receives grading events. Sessions may run concurrently so
// implementations must be safe for concurrent use.
type Gatherer interface {
	StartRun(runID string, spec *gradespec.Spec)

	SkipSubmission(sub submission.Submission, reason string)
	StartSession(sub submission.Submission)

	StartCompile(sub submission.Submission)
	FinishCompile(sub submission.Submission, success bool, output string)

	FinishSession(sub submission.Submission, res SessionResult)
	FinishRun(res RunResult, err error)
}

type SessionResult struct {
	State        string
	Score        float64
	TotalPoints  float64
	FeedbackPath string
}

type RunResult struct {
	Total    int
	Graded   int
	ScoreSum float64
}

// Multi fans every event out to all gatherers in order.
type Multi []Gatherer

func (m Multi) StartRun(runID string, spec *gradespec.Spec) {
	for _, g := range m {
		g.StartRun(runID, spec)
	}
}

func (m Multi) SkipSubmission(sub submission.Submission, reason string) {
	for _, g := range m {
		g.SkipSubmission(sub, reason)
	}
}

func (m Multi) StartSession(sub submission.Submission) {
	for _, g := range m {
		g.StartSession(sub)
	}
}

func (m Multi) StartCompile(sub submission.Submission) {
	for _, g := range m {
		g.StartCompile(sub)
	}
}

func (m Multi) FinishCompile(sub submission.Submission, success bool, output string) {
	for _, g := range m {
		g.FinishCompile(sub, success, output)
	}
}

func (m Multi) FinishSession(sub submission.Submission, res SessionResult) {
	for _, g := range m {
		g.FinishSession(sub, res)
	}
}

func (m Multi) FinishRun(res RunResult, err error) {
	for _, g := range m {
		g.FinishRun(res, err)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) StartRun(string, *gradespec.Spec)                   {}
func (Nop) SkipSubmission(submission.Submission, string)       {}
func (Nop) StartSession(submission.Submission)                 {}
func (Nop) StartCompile(submission.Submission)                 {}
func (Nop) FinishCompile(submission.Submission, bool, string)  {}
func (Nop) FinishSession(submission.Submission, SessionResult) {}
func (Nop) FinishRun(RunResult, error)                         {}
