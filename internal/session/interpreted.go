package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/programme-lv/autograder/internal/compare"
	"github.com/programme-lv/autograder/internal/sandbox"
	"github.com/programme-lv/autograder/internal/workspace"
)

// gradeInterpreted runs MainFile twice: first with the reference solution
// in place of CommonFile, then with the submission.
func (s *Session) gradeInterpreted(ctx context.Context, g *grading) error {
	in := s.spec.Interpreted
	src, err := s.stageSubmission(g, "")
	if err != nil {
		return s.stagingFailed(g, err)
	}
	shared := append([]string{}, in.RequiredFiles...)
	if err := s.stageShared(g, append(shared, in.ReferenceSolution)); err != nil {
		return err
	}

	prog, args, err := sandbox.Split(in.Interpreter)
	if err != nil {
		return err
	}
	cmd := sandbox.Command{
		Path:    prog,
		Args:    append(args, in.MainFile),
		Dir:     g.dir,
		Timeout: s.spec.Timeout,
	}
	common := filepath.Join(g.dir, in.CommonFile)
	defer func() {
		if err := os.Remove(common); err != nil && !errors.Is(err, os.ErrNotExist) {
			g.log.Warn("failed to remove common file", "error", err)
		}
	}()

	g.to(StateRunning)

	if err := workspace.CopyFile(filepath.Join(g.dir, filepath.Base(in.ReferenceSolution)), common); err != nil {
		return err
	}
	ref, err := sandbox.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !ref.Succeeded {
		return fmt.Errorf("%w: %s", ErrReference, ref.Diagnostic)
	}

	if err := workspace.CopyFile(filepath.Join(g.dir, src), common); err != nil {
		return err
	}
	stu, err := sandbox.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !stu.Succeeded {
		s.finishRunFailed(g, stu.Diagnostic)
		return nil
	}

	g.to(StateRunSucceeded)
	lines := compare.Lines{Normalizer: compare.Normalizer{CaseSensitive: s.spec.CaseSensitive}}
	s.finishScored(g, lines.Compare(ref.Stdout, stu.Stdout))
	return nil
}
