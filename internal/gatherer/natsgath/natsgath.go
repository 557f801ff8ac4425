package natsgath

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/autograder/api"
	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/submission"
)

// Publisher is the part of *nats.Conn the gatherer needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

type natsGatherer struct {
	pub     Publisher
	subject string
	log     *slog.Logger

	mu      sync.RWMutex
	runUuid string
}

// New creates a gatherer that streams events as JSON to the given subject.
func New(pub Publisher, subject string, log *slog.Logger) *natsGatherer {
	if log == nil {
		log = slog.Default()
	}
	return &natsGatherer{pub: pub, subject: subject, log: log}
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name("autograder"))
}

func (s *natsGatherer) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("failed to marshal message", "error", err)
		return
	}
	if err := s.pub.Publish(s.subject, b); err != nil {
		s.log.Warn("failed to publish message to NATS", "subject", s.subject, "error", err)
	}
}

func (s *natsGatherer) run() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runUuid
}

func student(sub submission.Submission) api.Student {
	return api.Student{Name: sub.StudentName, ID: sub.StudentID, Key: sub.Key}
}

func (s *natsGatherer) StartRun(runID string, spec *gradespec.Spec) {
	s.mu.Lock()
	s.runUuid = runID
	s.mu.Unlock()
	s.send(api.NewStartRun(runID, spec.AssignmentID, string(spec.Mode), spec.TotalPoints))
}

func (s *natsGatherer) SkipSubmission(sub submission.Submission, reason string) {
	s.send(api.NewSkipSession(s.run(), student(sub), reason))
}

func (s *natsGatherer) StartSession(sub submission.Submission) {
	s.send(api.NewStartSession(s.run(), student(sub)))
}

func (s *natsGatherer) StartCompile(sub submission.Submission) {
	s.send(api.NewStartCompile(s.run(), student(sub)))
}

func (s *natsGatherer) FinishCompile(sub submission.Submission, success bool, output string) {
	s.send(api.NewFinishCompile(s.run(), student(sub), success, output))
}

func (s *natsGatherer) FinishSession(sub submission.Submission, res gatherer.SessionResult) {
	s.send(api.NewFinishSession(s.run(), student(sub), res.State, res.Score, res.TotalPoints, res.FeedbackPath))
}

func (s *natsGatherer) FinishRun(res gatherer.RunResult, err error) {
	var msg *string
	if err != nil {
		m := err.Error()
		msg = &m
	}
	s.send(api.NewFinishRun(s.run(), res.Total, res.Graded, res.ScoreSum, msg))
}
