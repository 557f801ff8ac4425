//go:build unix

package behave_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/autograder/internal/behave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	cases, err := behave.Parse(filepath.Join("testdata", "modes.toml"))
	require.NoError(t, err)
	require.Len(t, cases, 6)

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			res, err := behave.Run(context.Background(), c, t.TempDir(), nil, nil)
			require.NoError(t, err)
			assert.True(t, res.Passed(), "failures: %v", res.Failures)
		})
	}
}

func TestRunReportsUnmetExpectations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[scenarios]]
description = "expects the wrong score"

[scenarios.spec]
external_grading = true
build_step_command = "true"
compile_step_command = "true"
run_step_command = "sh solution.sh"
student_filename = "solution.sh"
file_with_grade = "grade.txt"
files_to_upload = ["grade.txt"]
required_files = ["notes"]
total_points = 10

[[scenarios.files]]
name = "notes"
content = ""

[[scenarios.submissions]]
name = "joe_1_1_sol.sh"
content = "echo '>> Score: 3' > grade.txt"

[[scenarios.expect.students]]
name = "joe"
score = 10

[[scenarios.expect.students]]
name = "kim"
`), 0644))

	cases, err := behave.Parse(path)
	require.NoError(t, err)
	require.Len(t, cases, 1)

	res, err := behave.Run(context.Background(), cases[0], t.TempDir(), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Passed())
	assert.Equal(t, []string{
		"joe: expected score 10, got 3",
		"kim: not graded",
	}, res.Failures)
}

func TestParseRejectsEmptyScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[scenarios]]\ndescription = \"nothing\"\n"), 0644))
	_, err := behave.Parse(path)
	require.Error(t, err)
}
