package session

import (
	"context"
	"path/filepath"

	"github.com/programme-lv/autograder/internal/compare"
	"github.com/programme-lv/autograder/internal/compiler"
)

func (s *Session) gradeCompiled(ctx context.Context, g *grading) error {
	c := s.spec.Compiled
	src, err := s.stageSubmission(g, "")
	if err != nil {
		return s.stagingFailed(g, err)
	}
	if err := s.stageShared(g, []string{c.GeneratorOutput, c.ReferenceExe}); err != nil {
		return err
	}
	defer func() {
		if err := compiler.CleanupArtifacts(g.dir, src, c.CleanupExtensions); err != nil {
			g.log.Warn("failed to clean up build artifacts", "error", err)
		}
	}()

	g.to(StateCompiling)
	s.gath.StartCompile(g.sub)
	res, err := compiler.Compile(ctx, compiler.Invocation{Compiler: c.Compiler, Source: src, Dir: g.dir})
	if err != nil {
		return err
	}
	s.gath.FinishCompile(g.sub, res.Success, res.Output)
	if !res.Success {
		g.to(StateCompileFailed)
		g.fb.CompileFailure(res.Output)
		return nil
	}
	g.to(StateCompiled)

	g.to(StateRunning)
	ref := compare.Program{Path: filepath.Join(g.dir, filepath.Base(c.ReferenceExe)), Args: c.ReferenceArgs}
	stu := compare.Program{Path: res.Executable, Args: c.StudentArgs}
	norm := compare.Normalizer{CaseSensitive: s.spec.CaseSensitive}
	input := filepath.Base(c.GeneratorOutput)

	var outcome *compare.Outcome
	if c.UsesStdout {
		stream := compare.Stream{
			Reference:  ref,
			Student:    stu,
			Dir:        g.dir,
			Timeout:    s.spec.Timeout,
			Normalizer: norm,
		}
		outcome, err = stream.CompareFile(ctx, filepath.Join(g.dir, input))
	} else {
		file := compare.File{
			Reference:       ref,
			Student:         stu,
			Dir:             g.dir,
			Timeout:         s.spec.Timeout,
			Input:           input,
			ReferenceOutput: c.ReferenceOutput,
			StudentOutput:   c.StudentOutput,
			Normalizer:      norm,
		}
		outcome, err = file.Compare(ctx)
	}
	if err != nil {
		return referenceErr(err)
	}

	if f := outcome.Failure; f != nil {
		if f.Kind == compare.FailureMissingOutput {
			g.to(StateRunFailed)
			g.fb.MissingOutput()
			g.fb.ScoreLine(0)
			return nil
		}
		s.finishRunFailed(g, f.Diagnostic)
		return nil
	}
	if diag, ok := allErrored(outcome); ok {
		s.finishRunFailed(g, diag)
		return nil
	}

	g.to(StateRunSucceeded)
	s.finishScored(g, outcome)
	return nil
}

// allErrored reports a stream outcome in which the student program failed
// on every input, returning the first diagnostic.
func allErrored(o *compare.Outcome) (string, bool) {
	if len(o.Units) == 0 {
		return "", false
	}
	for _, u := range o.Units {
		if u.Verdict != compare.VerdictErrored {
			return "", false
		}
	}
	return o.Units[0].Error, true
}
