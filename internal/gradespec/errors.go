package gradespec

import (
	"fmt"
	"os"
	"strings"
)

// ConfigError reports every problem found in a specification file.
type ConfigError struct {
	File     string
	Missing  []string
	Problems []string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("invalid grading spec")
	if e.File != "" {
		fmt.Fprintf(&b, " %s", e.File)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing fields: %s", strings.Join(e.Missing, ", "))
	}
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "; %s", p)
	}
	return b.String()
}

// MissingArtifactError lists shared artifacts that could not be found.
type MissingArtifactError struct {
	Paths []string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing grading artifacts: %s", strings.Join(e.Paths, ", "))
}

// CheckArtifacts verifies that every file the run depends on exists in the
// spec directory. The generator output is produced by the run and is not
// checked.
func (s *Spec) CheckArtifacts() error {
	var want []string
	switch s.Mode {
	case ModeCompiled:
		want = []string{s.Compiled.Generator, s.Compiled.ReferenceExe}
	case ModeInterpreted:
		want = append(want, s.Interpreted.RequiredFiles...)
		want = append(want, s.Interpreted.ReferenceSolution)
	case ModeExternal:
		want = append(want, s.External.RequiredFiles...)
	}

	var missing []string
	for _, name := range want {
		if _, err := os.Stat(s.Path(name)); err != nil {
			missing = append(missing, s.Path(name))
		}
	}
	if len(missing) > 0 {
		return &MissingArtifactError{Paths: missing}
	}
	return nil
}
