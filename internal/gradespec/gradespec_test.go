package gradespec_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/programme-lv/autograder/internal/gradespec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCompiledJSON(t *testing.T) {
	path := writeSpec(t, "spec.json", `{
		"compiler": "ghc",
		"generator": "gen",
		"generator_output": "gen.out",
		"reference_exe": "ref",
		"reference_exe_output": "ref.out",
		"stdout": true,
		"stdin": false,
		"total_points": 20,
		"points_per_line": 2
	}`)

	spec, err := gradespec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, gradespec.ModeCompiled, spec.Mode)
	assert.Equal(t, 20.0, spec.TotalPoints)
	assert.Equal(t, 2.0, spec.PointsPerLine)
	assert.Equal(t, gradespec.DefaultTimeout, spec.Timeout)
	assert.True(t, spec.Compiled.UsesStdout)
	assert.Equal(t, []string{".hi", ".o"}, spec.Compiled.CleanupExtensions)
	assert.Equal(t, filepath.Dir(path), spec.Dir)
	assert.Equal(t, filepath.Join(spec.Dir, "ref"), spec.Path("ref"))
}

func TestLoadInterpretedTOML(t *testing.T) {
	path := writeSpec(t, "spec.toml", `
interpreter = "python3"
required_files = ["main.py", "input.txt"]
reference_solution = "ref_picker.py"
main_file = "main.py"
common_file = "picker.py"
total_points = 10
points_per_line = 1
timeout = 2.5
`)

	spec, err := gradespec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, gradespec.ModeInterpreted, spec.Mode)
	assert.Equal(t, 2500*time.Millisecond, spec.Timeout)
	assert.Equal(t, "picker.py", spec.Interpreted.CommonFile)
	assert.ElementsMatch(t, []string{"main.py", "input.txt", "ref_picker.py"}, spec.ReservedNames())
}

func TestLoadExternalYAML(t *testing.T) {
	path := writeSpec(t, "spec.yaml", `
external_grading: true
build_step_command: cmake .
compile_step_command: make
run_step_command: ./driver
student_filename: solution.cpp
file_with_grade: grade.txt
files_to_upload: [grade.txt]
required_files: [CMakeLists.txt, driver.cpp]
total_points: 50
`)

	spec, err := gradespec.Load(path)
	require.NoError(t, err)
	assert.Equal(t, gradespec.ModeExternal, spec.Mode)
	assert.Equal(t, []string{"CMakeFiles", "build"}, spec.External.CleanupDirs)
}

func TestLoadReportsAllMissingFields(t *testing.T) {
	path := writeSpec(t, "spec.json", `{"compiler": "gcc", "total_points": 10}`)

	_, err := gradespec.Load(path)
	require.Error(t, err)

	var cfgErr *gradespec.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, path, cfgErr.File)
	assert.ElementsMatch(t, []string{
		"points_per_line", "generator", "generator_output",
		"reference_exe", "reference_exe_output", "output_filename",
	}, cfgErr.Missing)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"unknown mode":   `{"mode": "magic", "total_points": 1}`,
		"no mode":        `{"total_points": 1}`,
		"zero total":     `{"external_grading": true, "build_step_command": "a", "compile_step_command": "b", "run_step_command": "c", "student_filename": "d", "file_with_grade": "e", "files_to_upload": ["e"], "required_files": ["f"], "total_points": 0}`,
		"unknown field":  `{"compiler": "gcc", "colour": "red"}`,
		"malformed json": `{"compiler": `,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := gradespec.Load(writeSpec(t, "spec.json", content))
			var cfgErr *gradespec.ConfigError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestCheckArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), nil, 0644))

	spec := &gradespec.Spec{
		Mode: gradespec.ModeInterpreted,
		Dir:  dir,
		Interpreted: &gradespec.Interpreted{
			RequiredFiles:     []string{"main.py"},
			ReferenceSolution: "ref.py",
		},
	}

	err := spec.CheckArtifacts()
	var missing *gradespec.MissingArtifactError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{filepath.Join(dir, "ref.py")}, missing.Paths)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ref.py"), nil, 0644))
	assert.NoError(t, spec.CheckArtifacts())
}
