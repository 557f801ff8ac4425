// Package gradespec holds the validated description of one assignment: which
// execution mode grades it, how it is scored and which artifacts it needs.
package gradespec

import (
	"path/filepath"
	"time"
)

type Mode string

const (
	ModeCompiled    Mode = "compiled"
	ModeInterpreted Mode = "interpreted"
	ModeExternal    Mode = "external"
)

const DefaultTimeout = 30 * time.Second

// Spec is constructed once per run and never mutated afterwards.
// Exactly one of Compiled, Interpreted and External is non-nil.
type Spec struct {
	AssignmentID  string
	Mode          Mode
	TotalPoints   float64
	PointsPerLine float64
	Timeout       time.Duration
	// CaseSensitive disables the lowercase step of output normalization.
	CaseSensitive bool

	// Dir is the directory artifact paths are resolved against.
	Dir string

	Compiled    *Compiled
	Interpreted *Interpreted
	External    *External
}

// Compiled grades a program that is built by Compiler and then run against
// input produced once per run by Generator.
type Compiled struct {
	Compiler          string
	Generator         string
	GeneratorArgs     []string
	GeneratorOutput   string
	ReferenceExe      string
	ReferenceOutput   string
	ReferenceArgs     []string
	StudentArgs       []string
	UsesStdout        bool
	StudentOutput     string
	CleanupExtensions []string
}

// Interpreted grades a source file that replaces CommonFile next to MainFile.
type Interpreted struct {
	Interpreter       string
	RequiredFiles     []string
	ReferenceSolution string
	MainFile          string
	CommonFile        string
}

// External delegates scoring to the submission's own build pipeline which
// writes GradeFile.
type External struct {
	BuildCommand    string
	CompileCommand  string
	RunCommand      string
	StudentFilename string
	GradeFile       string
	FilesToUpload   []string
	RequiredFiles   []string
	CleanupDirs     []string
}

// Path resolves an artifact name against the spec directory.
func (s *Spec) Path(name string) string {
	if filepath.IsAbs(name) || s.Dir == "" {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// SharedArtifacts lists the artifacts every session copies into its own
// working directory.
func (s *Spec) SharedArtifacts() []string {
	switch s.Mode {
	case ModeCompiled:
		return []string{s.Compiled.GeneratorOutput, s.Compiled.ReferenceExe}
	case ModeInterpreted:
		files := append([]string{}, s.Interpreted.RequiredFiles...)
		return append(files, s.Interpreted.ReferenceSolution)
	case ModeExternal:
		return append([]string{}, s.External.RequiredFiles...)
	}
	return nil
}

// ReservedNames are file names in the grading directory that are never
// student submissions.
func (s *Spec) ReservedNames() []string {
	names := []string{}
	for _, a := range s.SharedArtifacts() {
		names = append(names, filepath.Base(a))
	}
	if s.Mode == ModeCompiled {
		names = append(names, filepath.Base(s.Compiled.Generator))
	}
	return names
}

func defaultCleanupExtensions(compiler string) []string {
	switch filepath.Base(compiler) {
	case "fpc":
		return []string{".o"}
	case "ghc":
		return []string{".hi", ".o"}
	}
	return nil
}
