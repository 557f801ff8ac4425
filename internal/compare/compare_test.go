//go:build unix

package compare_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/programme-lv/autograder/internal/compare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, dir, name, body string) compare.Program {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return compare.Program{Path: path}
}

func TestNormalizer(t *testing.T) {
	n := compare.Normalizer{}
	assert.True(t, n.Equal("a   b\n", "a b"))
	assert.True(t, n.Equal("Hello", "hello"))
	assert.True(t, n.Equal("x\t y \r\n", " x y"))
	assert.False(t, n.Equal("ab", "a b"))

	cs := compare.Normalizer{CaseSensitive: true}
	assert.False(t, cs.Equal("Hello", "hello"))
	assert.True(t, cs.Equal("a   b\n", "a b"))
}

func TestStreamAllLinesMatch(t *testing.T) {
	dir := t.TempDir()
	// both programs print n+1 for input n
	ref := script(t, dir, "ref", `read n; echo $((n+1))`)
	stu := script(t, dir, "stu", `read n; echo "  $((n+1))"`)

	s := compare.Stream{Reference: ref, Student: stu, Dir: dir, Timeout: 5 * time.Second}
	out, err := s.Compare(context.Background(), []string{"3", "4"})
	require.NoError(t, err)
	require.Len(t, out.Units, 2)
	assert.Equal(t, 2, out.Matches())
	assert.Empty(t, out.Problems())
	assert.Equal(t, "4\n", out.Units[0].Expected)
	assert.Equal(t, "3", out.Units[0].Input)
}

func TestStreamStudentErrorContinues(t *testing.T) {
	dir := t.TempDir()
	ref := script(t, dir, "ref", `read n; echo $n`)
	stu := script(t, dir, "stu", `read n; if [ "$n" = "2" ]; then echo boom >&2; exit 1; fi; echo wrong`)

	in := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(in, []byte("1\n2\n3\n"), 0644))

	s := compare.Stream{Reference: ref, Student: stu, Dir: dir, Timeout: 5 * time.Second}
	out, err := s.CompareFile(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out.Units, 3)
	assert.Equal(t, compare.VerdictMismatch, out.Units[0].Verdict)
	assert.Equal(t, compare.VerdictErrored, out.Units[1].Verdict)
	assert.Equal(t, "> boom\n> ", out.Units[1].Error)
	assert.Equal(t, compare.VerdictMismatch, out.Units[2].Verdict)
	assert.Equal(t, 0, out.Matches())
}

func TestStreamReferenceFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	ref := script(t, dir, "ref", `exit 2`)
	stu := script(t, dir, "stu", `echo 1`)

	s := compare.Stream{Reference: ref, Student: stu, Dir: dir}
	_, err := s.Compare(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, compare.ErrReference)
}

func TestFileComparesOverlapOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gen.out"), []byte("a\nb\nc\n"), 0644))
	ref := script(t, dir, "ref", `printf 'A\nB\nC\n' > ref.out`)
	stu := script(t, dir, "stu", `printf 'a\nb\n' > stu.out`)

	f := compare.File{
		Reference:       ref,
		Student:         stu,
		Dir:             dir,
		Input:           "gen.out",
		ReferenceOutput: "ref.out",
		StudentOutput:   "stu.out",
	}
	out, err := f.Compare(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out.Failure)
	assert.Len(t, out.Units, 2)
	assert.Equal(t, 2, out.Matches())
	assert.Empty(t, out.Problems())
	assert.Equal(t, "b", out.Units[1].Input)
}

func TestFileMissingStudentOutput(t *testing.T) {
	dir := t.TempDir()
	ref := script(t, dir, "ref", `echo x > ref.out`)
	stu := script(t, dir, "stu", `true`)
	// stale output from an earlier run must not be graded
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stu.out"), []byte("x\n"), 0644))

	f := compare.File{Reference: ref, Student: stu, Dir: dir, ReferenceOutput: "ref.out", StudentOutput: "stu.out"}
	out, err := f.Compare(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.Equal(t, compare.FailureMissingOutput, out.Failure.Kind)
}

func TestFileStudentCrash(t *testing.T) {
	dir := t.TempDir()
	ref := script(t, dir, "ref", `echo x > ref.out`)
	stu := script(t, dir, "stu", `echo oops >&2; exit 1`)

	f := compare.File{Reference: ref, Student: stu, Dir: dir, ReferenceOutput: "ref.out", StudentOutput: "stu.out"}
	out, err := f.Compare(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.Equal(t, compare.FailureRun, out.Failure.Kind)
	assert.Contains(t, out.Failure.Diagnostic, "> oops")
}

func TestFileMissingReferenceOutput(t *testing.T) {
	dir := t.TempDir()
	ref := script(t, dir, "ref", `true`)
	stu := script(t, dir, "stu", `echo x > stu.out`)

	f := compare.File{Reference: ref, Student: stu, Dir: dir, ReferenceOutput: "ref.out", StudentOutput: "stu.out"}
	_, err := f.Compare(context.Background())
	assert.ErrorIs(t, err, compare.ErrReferenceOutput)
}

func TestLines(t *testing.T) {
	l := compare.Lines{}
	out := l.Compare("one\nTwo\nthree\n", "ONE\ntwo  \n")
	require.Len(t, out.Units, 3)
	assert.Equal(t, 2, out.Matches())
	assert.Equal(t, compare.VerdictMissing, out.Units[2].Verdict)
	assert.Equal(t, "three", out.Units[2].Expected)

	out = l.Compare("a\n", "a\nextra\n")
	assert.Len(t, out.Units, 1)
	assert.Equal(t, 1, out.Matches())
}

func TestExtractor(t *testing.T) {
	grade := strings.Join([]string{
		">> Score for part 1: 85",
		"some noise",
		"String_reverse(): 5",
		">>Score total:  3",
	}, "\n")

	e := compare.NewExtractor()
	sum, err := e.Extract(strings.NewReader(grade))
	require.NoError(t, err)
	assert.Equal(t, 93.0, sum)
}

func TestExtractorCustomPattern(t *testing.T) {
	bonus := compare.Pattern{
		Name: "bonus",
		Re:   regexp.MustCompile(`^BONUS x(\d+)$`),
		Value: func(m []string) (float64, error) {
			n, err := strconv.Atoi(m[1])
			return float64(n * 2), err
		},
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "grade.txt")
	require.NoError(t, os.WriteFile(path, []byte(">> Score: 10\nBONUS x3\n"), 0644))

	sum, err := compare.NewExtractor(bonus).ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, 16.0, sum)
}

func TestStudentNotStarted(t *testing.T) {
	dir := t.TempDir()
	ref := script(t, dir, "ref", `echo x > ref.out; read n; echo $n`)
	stu := compare.Program{Path: filepath.Join(dir, "a.out")}

	s := compare.Stream{Reference: ref, Student: stu, Dir: dir, Timeout: 5 * time.Second}
	out, err := s.Compare(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, out.Units, 2)
	for _, u := range out.Units {
		assert.Equal(t, compare.VerdictErrored, u.Verdict)
		assert.Equal(t, compare.NotStartedMessage, u.Error)
	}

	f := compare.File{Reference: ref, Student: stu, Dir: dir, ReferenceOutput: "ref.out", StudentOutput: "stu.out"}
	fo, err := f.Compare(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fo.Failure)
	assert.Equal(t, compare.FailureRun, fo.Failure.Kind)
	assert.Equal(t, compare.NotStartedMessage, fo.Failure.Diagnostic)
}

func TestExtractorLongLines(t *testing.T) {
	noise := strings.Repeat("x", 2<<20)
	grade := noise + "\n>> Score: 7\n" + noise
	sum, err := compare.NewExtractor().Extract(strings.NewReader(grade))
	require.NoError(t, err)
	assert.Equal(t, 7.0, sum)

	_, err = compare.NewExtractor().Extract(strings.NewReader(">> Score: " + strings.Repeat("9", 400) + "\n"))
	assert.ErrorIs(t, err, compare.ErrUnparsableScore)
}
