package respbuilder

import (
	"sync"
	"time"

	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/submission"
)

// Session is everything reported about one submission.
type Session struct {
	Key           string
	StudentName   string
	Compiled      *bool
	CompileOutput string
	Result        gatherer.SessionResult
}

// Report is the collected view of one run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished *time.Time
	Sessions []Session
	Skipped  map[string]string
	Result   gatherer.RunResult
	Error    *string
}

// Builder gathers grading events in memory and builds a Report.
type Builder struct {
	mu     sync.Mutex
	report Report
	index  map[string]int
}

func New() *Builder {
	return &Builder{
		report: Report{Skipped: map[string]string{}},
		index:  map[string]int{},
	}
}

func (b *Builder) session(sub submission.Submission) *Session {
	i, ok := b.index[sub.Key]
	if !ok {
		i = len(b.report.Sessions)
		b.index[sub.Key] = i
		b.report.Sessions = append(b.report.Sessions, Session{Key: sub.Key, StudentName: sub.StudentName})
	}
	return &b.report.Sessions[i]
}

// StartRun implements gatherer.Gatherer.
func (b *Builder) StartRun(runID string, spec *gradespec.Spec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report.RunID = runID
	b.report.Started = time.Now()
}

// SkipSubmission implements gatherer.Gatherer.
func (b *Builder) SkipSubmission(sub submission.Submission, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.report.Skipped[sub.Key] = reason
}

// StartSession implements gatherer.Gatherer.
func (b *Builder) StartSession(sub submission.Submission) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session(sub)
}

// StartCompile implements gatherer.Gatherer.
func (b *Builder) StartCompile(sub submission.Submission) {}

// FinishCompile implements gatherer.Gatherer.
func (b *Builder) FinishCompile(sub submission.Submission, success bool, output string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.session(sub)
	s.Compiled = &success
	s.CompileOutput = output
}

// FinishSession implements gatherer.Gatherer.
func (b *Builder) FinishSession(sub submission.Submission, res gatherer.SessionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session(sub).Result = res
}

// FinishRun implements gatherer.Gatherer.
func (b *Builder) FinishRun(res gatherer.RunResult, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	b.report.Finished = &now
	b.report.Result = res
	if err != nil {
		msg := err.Error()
		b.report.Error = &msg
	}
}

// Build returns a copy of the report gathered so far.
func (b *Builder) Build() Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.report
	r.Sessions = append([]Session(nil), b.report.Sessions...)
	r.Skipped = make(map[string]string, len(b.report.Skipped))
	for k, v := range b.report.Skipped {
		r.Skipped[k] = v
	}
	return r
}

// Session looks up the session reported for an artifact key.
func (r Report) Session(key string) (Session, bool) {
	for _, s := range r.Sessions {
		if s.Key == key {
			return s, true
		}
	}
	return Session{}, false
}
