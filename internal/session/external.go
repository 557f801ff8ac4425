package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/programme-lv/autograder/internal/compare"
	"github.com/programme-lv/autograder/internal/sandbox"
	"github.com/programme-lv/autograder/internal/score"
	"github.com/programme-lv/autograder/internal/workspace"
)

// gradeExternal delegates scoring to the submission's own build and a
// driver program that writes the grade file.
func (s *Session) gradeExternal(ctx context.Context, g *grading) error {
	ex := s.spec.External
	if _, err := s.stageSubmission(g, ex.StudentFilename); err != nil {
		return s.stagingFailed(g, err)
	}
	if err := s.stageShared(g, ex.RequiredFiles); err != nil {
		return err
	}
	defer func() {
		if err := workspace.RemoveDirs(g.dir, ex.CleanupDirs); err != nil {
			g.log.Warn("failed to clean up build directories", "error", err)
		}
	}()

	gradeFile := filepath.Join(g.dir, ex.GradeFile)
	if err := os.Remove(gradeFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale grade file: %w", err)
	}

	g.to(StateCompiling)
	s.gath.StartCompile(g.sub)
	var output string
	for _, step := range []string{ex.BuildCommand, ex.CompileCommand} {
		res, err := s.runStep(ctx, g, step)
		if err != nil {
			return err
		}
		output += res.Stdout + res.Stderr
		if !res.Succeeded {
			if res.Outcome == sandbox.OutcomeTimeout || res.Outcome == sandbox.OutcomeCrash {
				output += res.Diagnostic + "\n"
			}
			s.gath.FinishCompile(g.sub, false, output)
			g.to(StateCompileFailed)
			g.fb.CompileFailure(output)
			return nil
		}
	}
	s.gath.FinishCompile(g.sub, true, output)
	g.to(StateCompiled)

	g.to(StateRunning)
	run, err := s.runStep(ctx, g, ex.RunCommand)
	if errors.Is(err, sandbox.ErrStart) {
		g.to(StateRunFailed)
		g.fb.DriverFailure(compare.NotStartedMessage)
		return nil
	}
	if err != nil {
		return err
	}
	g.attachments = existing(g.dir, ex.FilesToUpload)
	_, statErr := os.Stat(gradeFile)
	if !run.Succeeded || statErr != nil {
		g.to(StateRunFailed)
		diag := run.Diagnostic
		if run.Succeeded {
			diag = ""
		}
		g.fb.DriverFailure(diag)
		return nil
	}

	raw, err := s.extractor.ExtractFile(gradeFile)
	if errors.Is(err, compare.ErrUnparsableScore) {
		g.to(StateRunFailed)
		g.fb.UnscorableGrade(err.Error())
		g.fb.ScoreLine(0)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to extract score: %w", err)
	}
	content, err := os.ReadFile(gradeFile)
	if err != nil {
		return fmt.Errorf("failed to read grade file: %w", err)
	}
	g.to(StateRunSucceeded)

	g.to(StateScored)
	g.score = score.Clamp(raw, s.spec.TotalPoints)
	g.fb.ScoreLine(g.score)
	g.fb.DriverOutput(string(content))
	return nil
}

func (s *Session) runStep(ctx context.Context, g *grading, command string) (*sandbox.Result, error) {
	prog, args, err := sandbox.Split(command)
	if err != nil {
		return nil, err
	}
	res, err := sandbox.Run(ctx, sandbox.Command{
		Path:    prog,
		Args:    args,
		Dir:     g.dir,
		Timeout: s.spec.Timeout,
	})
	if err != nil {
		return nil, err
	}
	g.log.Debug("ran step", "command", command, "outcome", res.Outcome, "wall", res.Wall)
	return res, nil
}

// existing returns the paths of the named files present in dir.
func existing(dir string, names []string) []string {
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			paths = append(paths, path)
		}
	}
	return paths
}
