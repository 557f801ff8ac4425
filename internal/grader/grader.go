// Package grader runs one grading pass over every submission of an
// assignment and collects the results.
package grader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/programme-lv/autograder/internal/gatherer"
	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/programme-lv/autograder/internal/publish"
	"github.com/programme-lv/autograder/internal/results"
	"github.com/programme-lv/autograder/internal/sandbox"
	"github.com/programme-lv/autograder/internal/session"
	"github.com/programme-lv/autograder/internal/source"
	"github.com/programme-lv/autograder/internal/submission"
	"github.com/programme-lv/autograder/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// ErrGenerator means the input generator failed, so nothing can be graded.
var ErrGenerator = errors.New("input generator failed")

// ErrPublish is returned together with a complete Summary when the run
// succeeded but its grades could not be published.
var ErrPublish = errors.New("failed to publish grades")

// skippedExtensions are report and log files that share the grading
// directory with submissions.
var skippedExtensions = mapset.NewSet(".txt", ".csv")

type Config struct {
	Spec      *gradespec.Spec
	Workspace *workspace.Workspace
	Source    source.Source
	// Publisher is optional. It is never called in debug mode.
	Publisher publish.Publisher
	Gatherer  gatherer.Gatherer
	Logger    *slog.Logger
	// Workers bounds concurrent sessions. Values below one mean one.
	Workers      int
	ForceRegrade bool
	Debug        bool
}

type Grader struct {
	cfg  Config
	gath gatherer.Gatherer
	log  *slog.Logger
}

func New(cfg Config) (*Grader, error) {
	if cfg.Spec == nil {
		return nil, fmt.Errorf("grading spec is required")
	}
	if cfg.Workspace == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("submission source is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	g := &Grader{cfg: cfg, gath: cfg.Gatherer, log: cfg.Logger}
	if g.gath == nil {
		g.gath = gatherer.Nop{}
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g, nil
}

// Summary describes one finished run.
type Summary struct {
	RunID string
	// Total counts every submission inspected, including already graded ones.
	Total int
	// Graded counts submissions a session ran for in this run.
	Graded   int
	ScoreSum float64
	Records  []*session.Record
	// ResultsPath is the CSV written for this run.
	ResultsPath string
}

// Average is the mean score of the graded submissions. It is not defined
// when nothing was graded.
func (s *Summary) Average() (float64, bool) {
	if s.Graded == 0 {
		return 0, false
	}
	return s.ScoreSum / float64(s.Graded), true
}

func (s *Summary) Rows() []results.Row {
	rows := make([]results.Row, 0, len(s.Records))
	for _, r := range s.Records {
		rows = append(rows, results.Row{
			StudentName:  r.StudentName,
			StudentID:    r.StudentID,
			Score:        r.Score,
			FeedbackPath: r.FeedbackPath,
			Attachments:  r.Attachments,
		})
	}
	return rows
}

// Run prepares the shared artifacts, grades every new or changed
// submission and writes the results CSV. A returned error without a
// Summary means the run was aborted and no CSV was written.
func (g *Grader) Run(ctx context.Context) (*Summary, error) {
	spec := g.cfg.Spec
	sum := &Summary{RunID: uuid.NewString()}
	log := g.log.With("run", sum.RunID, "assignment", spec.AssignmentID)

	g.gath.StartRun(sum.RunID, spec)
	fail := func(err error) (*Summary, error) {
		g.gath.FinishRun(gatherer.RunResult{Total: sum.Total, Graded: sum.Graded, ScoreSum: sum.ScoreSum}, err)
		return nil, err
	}

	if err := g.prepare(ctx); err != nil {
		return fail(err)
	}

	subs, err := g.collect(ctx, log, sum)
	if err != nil {
		return fail(err)
	}

	recs, err := g.grade(ctx, subs)
	if err != nil {
		return fail(err)
	}
	for _, rec := range recs {
		sum.Records = append(sum.Records, rec)
		sum.Graded++
		sum.ScoreSum += rec.Score
	}

	sum.ResultsPath = g.cfg.Workspace.Path(results.FileName)
	if err := results.WriteCSV(sum.ResultsPath, sum.Rows()); err != nil {
		return fail(err)
	}
	log.Info("wrote results", "path", sum.ResultsPath, "graded", sum.Graded, "total", sum.Total)

	g.markGraded(ctx, log, recs)

	runRes := gatherer.RunResult{Total: sum.Total, Graded: sum.Graded, ScoreSum: sum.ScoreSum}
	if err := g.publish(ctx, log, sum); err != nil {
		g.gath.FinishRun(runRes, err)
		return sum, err
	}
	g.gath.FinishRun(runRes, nil)
	return sum, nil
}

// prepare checks the spec artifacts, copies them into the grading
// directory and runs the generator once for the whole run.
func (g *Grader) prepare(ctx context.Context) error {
	spec := g.cfg.Spec

	if err := spec.CheckArtifacts(); err != nil {
		return err
	}

	for _, name := range spec.SharedArtifacts() {
		if spec.Mode == gradespec.ModeCompiled && name == spec.Compiled.GeneratorOutput {
			continue
		}
		if err := g.copyShared(spec.Path(name)); err != nil {
			return err
		}
	}

	if spec.Mode != gradespec.ModeCompiled {
		return nil
	}
	c := spec.Compiled
	res, err := sandbox.Run(ctx, sandbox.Command{
		Path:    spec.Path(c.Generator),
		Args:    c.GeneratorArgs,
		Dir:     spec.Dir,
		Timeout: spec.Timeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGenerator, err)
	}
	if !res.Succeeded {
		return fmt.Errorf("%w:\n%s", ErrGenerator, res.Diagnostic)
	}
	if _, err := os.Stat(spec.Path(c.GeneratorOutput)); err != nil {
		return fmt.Errorf("%w: output %s was not produced", ErrGenerator, c.GeneratorOutput)
	}
	g.log.Debug("generated input", "path", spec.Path(c.GeneratorOutput))
	return g.copyShared(spec.Path(c.GeneratorOutput))
}

func (g *Grader) copyShared(src string) error {
	dst := g.cfg.Workspace.Path(filepath.Base(src))
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", src, err)
	}
	if abs == dst {
		return nil
	}
	if err := workspace.CopyFile(abs, dst); err != nil {
		return fmt.Errorf("failed to copy shared artifact: %w", err)
	}
	return nil
}

// collect fetches submissions and drops everything that is not a fresh
// student artifact. Only the latest artifact of each student is kept.
// Already graded submissions count towards Total.
func (g *Grader) collect(ctx context.Context, log *slog.Logger, sum *Summary) ([]submission.Submission, error) {
	spec := g.cfg.Spec
	fetched, err := g.cfg.Source.FetchNewOrChanged(ctx, spec.AssignmentID, g.cfg.ForceRegrade)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submissions: %w", err)
	}

	reserved := mapset.NewSet(spec.ReservedNames()...)
	reserved.Add(results.FileName)

	graded := mapset.NewSet[string]()
	if !g.cfg.ForceRegrade {
		keys, err := g.cfg.Source.ListAlreadyGraded(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list graded submissions: %w", err)
		}
		graded.Append(keys...)
	}

	var cands []submission.Submission
	for _, sub := range fetched {
		if reserved.Contains(sub.Key) || skippedExtensions.Contains(strings.ToLower(filepath.Ext(sub.Key))) {
			continue
		}
		if sub.StudentName == "" {
			log.Warn("skipping file with unrecognized name", "key", sub.Key)
			continue
		}
		cands = append(cands, sub)
	}

	latest := latestPerStudent(cands)
	var subs []submission.Submission
	for i, sub := range cands {
		if j := latest[sub.StudentID]; j != i {
			newer := cands[j].Key
			g.gath.SkipSubmission(sub, "superseded by "+newer)
			log.Info("skipping superseded submission", "key", sub.Key, "newer", newer)
			continue
		}
		sum.Total++
		if graded.Contains(sub.Key) {
			g.gath.SkipSubmission(sub, "already graded")
			log.Debug("already graded", "key", sub.Key)
			continue
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// latestPerStudent maps each student id to the index of that student's
// most recently modified artifact. Ties go to the one listed last.
func latestPerStudent(subs []submission.Submission) map[string]int {
	latest := make(map[string]int, len(subs))
	for i, sub := range subs {
		j, ok := latest[sub.StudentID]
		if !ok || !sub.Modified.Before(subs[j].Modified) {
			latest[sub.StudentID] = i
		}
	}
	return latest
}

// grade runs sessions on a bounded pool. Records keep the discovery order
// of subs regardless of which session finishes first.
func (g *Grader) grade(ctx context.Context, subs []submission.Submission) ([]*session.Record, error) {
	sess := session.New(g.cfg.Spec, g.cfg.Workspace,
		session.WithGatherer(g.gath),
		session.WithLogger(g.log))

	recs := make([]*session.Record, len(subs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i, sub := range subs {
		eg.Go(func() error {
			rec, err := sess.Grade(egCtx, sub)
			if err != nil {
				return err
			}
			recs[i] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (g *Grader) markGraded(ctx context.Context, log *slog.Logger, recs []*session.Record) {
	rec, ok := g.cfg.Source.(source.GradedRecorder)
	if !ok {
		return
	}
	for _, r := range recs {
		if err := rec.MarkGraded(ctx, g.cfg.Spec.AssignmentID, r.Submission, r.Score); err != nil {
			log.Warn("failed to record graded submission", "key", r.Submission.Key, "error", err)
		}
	}
}

func (g *Grader) publish(ctx context.Context, log *slog.Logger, sum *Summary) error {
	if g.cfg.Publisher == nil || len(sum.Records) == 0 {
		return nil
	}
	if g.cfg.Debug {
		log.Info("debug mode, not publishing grades", "count", len(sum.Records))
		return nil
	}
	if err := g.cfg.Publisher.Publish(ctx, g.cfg.Spec.AssignmentID, sum.Rows()); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	log.Info("published grades", "count", len(sum.Records))
	return nil
}
