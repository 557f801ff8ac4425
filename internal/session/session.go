// Package session grades exactly one submission end to end: staging,
// building, running, comparing, scoring and writing the feedback file.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/programme-lv/autograder/internal/compare"
	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/score"
	"github.com/programme-lv/autograder/internal/submission"
	"github.com/programme-lv/autograder/internal/workspace"
)

// ErrReference marks failures of the reference solution. They are fatal
// for the whole run because every submission would score zero.
var ErrReference = errors.New("reference solution failed")

type State string

const (
	StateStaged        State = "staged"
	StateCompiling     State = "compiling"
	StateCompileFailed State = "compile_failed"
	StateCompiled      State = "compiled"
	StateRunning       State = "running"
	StateRunFailed     State = "run_failed"
	StateRunSucceeded  State = "run_succeeded"
	StateScored        State = "scored"
	StateReported      State = "reported"
)

// Terminal reports whether a session may end in s.
func (s State) Terminal() bool {
	return s == StateCompileFailed || s == StateRunFailed || s == StateScored
}

// Record is the result of one finished session.
type Record struct {
	Submission   submission.Submission
	StudentID    string
	StudentName  string
	Score        float64
	FeedbackPath string
	// State is the terminal state the session ended in.
	State State
	// Trace lists every state the session passed through, in order.
	Trace []State
	// Attachments are files the driver left in the working directory that
	// are published alongside the grade.
	Attachments []string
}

// Session grades submissions against one spec. Shared artifacts are read
// from the workspace root; every file a session writes stays in the
// submission's own working directory.
type Session struct {
	spec      *gradespec.Spec
	ws        *workspace.Workspace
	gath      gatherer.Gatherer
	log       *slog.Logger
	extractor *compare.Extractor
}

type Option func(*Session)

func WithGatherer(g gatherer.Gatherer) Option {
	return func(s *Session) { s.gath = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithExtractor replaces the grade-file extractor used in external mode.
func WithExtractor(e *compare.Extractor) Option {
	return func(s *Session) { s.extractor = e }
}

func New(spec *gradespec.Spec, ws *workspace.Workspace, opts ...Option) *Session {
	s := &Session{
		spec:      spec,
		ws:        ws,
		gath:      gatherer.Nop{},
		log:       slog.Default(),
		extractor: compare.NewExtractor(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// grading is the mutable state of one Grade call.
type grading struct {
	sub   submission.Submission
	dir   string
	fb    *score.Feedback
	trace []State
	score float64
	log   *slog.Logger

	attachments []string
}

func (g *grading) to(st State) {
	g.trace = append(g.trace, st)
	g.log.Debug("session state", "state", st)
}

func (g *grading) state() State {
	return g.trace[len(g.trace)-1]
}

// Grade runs one submission through the pipeline. Compile and run failures
// end in a terminal state with score zero and no error. An error means the
// submission could not be graded at all and no record exists.
func (s *Session) Grade(ctx context.Context, sub submission.Submission) (*Record, error) {
	dir, err := s.ws.Dir(sub.Stem())
	if err != nil {
		return nil, err
	}

	g := &grading{
		sub: sub,
		dir: dir,
		fb:  score.NewFeedback(sub.Stem(), s.spec.TotalPoints),
		log: s.log.With("student", sub.StudentName, "key", sub.Key),
	}
	g.to(StateStaged)
	s.gath.StartSession(sub)

	switch s.spec.Mode {
	case gradespec.ModeCompiled:
		err = s.gradeCompiled(ctx, g)
	case gradespec.ModeInterpreted:
		err = s.gradeInterpreted(ctx, g)
	case gradespec.ModeExternal:
		err = s.gradeExternal(ctx, g)
	default:
		err = fmt.Errorf("unknown mode %q", s.spec.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to grade %s: %w", sub.Key, err)
	}

	final := g.state()
	if !final.Terminal() {
		return nil, fmt.Errorf("session for %s ended in non-terminal state %s", sub.Key, final)
	}

	feedbackPath := filepath.Join(dir, sub.StudentName+".results.txt")
	if err := g.fb.WriteFile(feedbackPath); err != nil {
		return nil, err
	}
	g.to(StateReported)

	rec := &Record{
		Submission:   sub,
		StudentID:    sub.StudentID,
		StudentName:  sub.StudentName,
		Score:        g.score,
		FeedbackPath: feedbackPath,
		State:        final,
		Trace:        g.trace,
		Attachments:  g.attachments,
	}
	s.gath.FinishSession(sub, gatherer.SessionResult{
		State:        string(final),
		Score:        rec.Score,
		TotalPoints:  s.spec.TotalPoints,
		FeedbackPath: feedbackPath,
	})
	g.log.Info("graded submission", "state", final, "score", rec.Score)
	return rec, nil
}

// stageSubmission copies the artifact into the working directory under
// name, or under its own key with any ".zst" suffix dropped.
func (s *Session) stageSubmission(g *grading, name string) (string, error) {
	if name == "" {
		name = strings.TrimSuffix(g.sub.Key, ".zst")
	}
	if _, err := workspace.Stage(g.sub.Path, g.dir, name); err != nil {
		return "", fmt.Errorf("failed to stage submission: %w", err)
	}
	return name, nil
}

// stagingFailed ends the session as run_failed when the submission's
// artifact cannot be decoded. Any other error is returned unchanged.
func (s *Session) stagingFailed(g *grading, err error) error {
	if !errors.Is(err, workspace.ErrCorrupt) {
		return err
	}
	g.log.Warn("submission artifact is corrupt", "error", err)
	g.to(StateRunFailed)
	g.score = 0
	g.fb.CorruptSubmission()
	g.fb.ScoreLine(0)
	return nil
}

// stageShared copies shared artifacts from the workspace root into the
// working directory so the session never touches the shared copies.
func (s *Session) stageShared(g *grading, names []string) error {
	for _, name := range names {
		base := filepath.Base(name)
		if _, err := workspace.Stage(s.ws.Path(base), g.dir, base); err != nil {
			return fmt.Errorf("failed to stage %s: %w", base, err)
		}
	}
	return nil
}

func (s *Session) finishRunFailed(g *grading, diagnostic string) {
	g.to(StateRunFailed)
	g.score = 0
	g.fb.RunFailure(diagnostic)
	g.fb.ScoreLine(0)
}

func (s *Session) finishScored(g *grading, outcome *compare.Outcome) {
	g.to(StateScored)
	scorer := score.Scorer{TotalPoints: s.spec.TotalPoints, PointsPerLine: s.spec.PointsPerLine}
	g.score = scorer.Score(outcome)
	g.fb.Units(outcome.Problems(), s.spec.PointsPerLine)
	g.fb.ScoreLine(g.score)
}

func referenceErr(err error) error {
	if errors.Is(err, compare.ErrReference) || errors.Is(err, compare.ErrReferenceOutput) {
		return fmt.Errorf("%w: %w", ErrReference, err)
	}
	return err
}
