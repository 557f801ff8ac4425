//go:build unix

package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/autograder/internal/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompiler "compiles" by copying the source to the executable path.
const fakeCompiler = `#!/bin/sh
if grep -q SYNTAX "$1"; then
  echo "error: syntax error in $1" >&2
  exit 1
fi
echo "compiling $(basename "$1")"
out="$(dirname "$1")/$(basename "$1" | cut -d. -f1)"
cp "$1" "$out" && chmod +x "$out"
touch "$out.o"
`

func setup(t *testing.T, source string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cc := filepath.Join(dir, "cc.sh")
	require.NoError(t, os.WriteFile(cc, []byte(fakeCompiler), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob_1_2_main.sh"), []byte(source), 0644))
	return dir, cc
}

func TestCompileSuccess(t *testing.T) {
	dir, cc := setup(t, "#!/bin/sh\necho hi\n")

	res, err := compiler.Compile(context.Background(), compiler.Invocation{
		Compiler: cc,
		Source:   "bob_1_2_main.sh",
		Dir:      dir,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "compiling bob_1_2_main.sh\n", res.Output)
	assert.Equal(t, filepath.Join(dir, "bob_1_2_main"), res.Executable)
	assert.FileExists(t, res.Executable)

	require.NoError(t, compiler.CleanupArtifacts(dir, "bob_1_2_main.sh", []string{".o", "hi"}))
	assert.NoFileExists(t, res.Executable+".o")
	assert.FileExists(t, res.Executable)
}

func TestCompileFailureKeepsDiagnostic(t *testing.T) {
	dir, cc := setup(t, "SYNTAX\n")

	res, err := compiler.Compile(context.Background(), compiler.Invocation{
		Compiler: cc,
		Source:   "bob_1_2_main.sh",
		Dir:      dir,
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "syntax error")
}

func TestCompilePlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_1_main.txt"), []byte("x"), 0644))

	res, err := compiler.Compile(context.Background(), compiler.Invocation{
		Compiler: "cp {src} {exe}",
		Source:   "a_1_main.txt",
		Dir:      dir,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.FileExists(t, filepath.Join(dir, "a_1_main"))
}
