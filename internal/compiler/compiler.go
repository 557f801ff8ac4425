// Package compiler builds a single submission source file into an executable.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/programme-lv/autograder/internal/sandbox"
	"github.com/programme-lv/autograder/internal/submission"
)

const (
	srcPlaceholder = "{src}"
	exePlaceholder = "{exe}"
)

// Invocation describes one compiler call. Compiler is a command string such
// as "ghc" or "gcc -O2 -o {exe} {src}". Without placeholders the source file
// is appended as the sole input.
type Invocation struct {
	Compiler string
	Source   string
	Dir      string
}

type Result struct {
	Success bool
	// Output holds the compiler's stdout followed by its stderr, verbatim.
	Output string
	// Executable is the expected path of the produced program.
	Executable string
}

// Compile runs the compiler without a timeout. Cancelling ctx still stops it.
func Compile(ctx context.Context, inv Invocation) (*Result, error) {
	prog, args, err := sandbox.Split(inv.Compiler)
	if err != nil {
		return nil, err
	}

	exe := Executable(inv.Dir, inv.Source)
	src := inv.Source
	if !filepath.IsAbs(src) && inv.Dir != "" {
		src = filepath.Join(inv.Dir, src)
	}

	substituted := false
	for i, a := range args {
		if strings.Contains(a, srcPlaceholder) || strings.Contains(a, exePlaceholder) {
			substituted = true
			a = strings.ReplaceAll(a, srcPlaceholder, src)
			args[i] = strings.ReplaceAll(a, exePlaceholder, exe)
		}
	}
	if !substituted {
		args = append(args, src)
	}

	res, err := sandbox.Run(ctx, sandbox.Command{Path: prog, Args: args, Dir: inv.Dir})
	if err != nil {
		return nil, fmt.Errorf("failed to run compiler: %w", err)
	}

	return &Result{
		Success:    res.Succeeded,
		Output:     res.Stdout + res.Stderr,
		Executable: exe,
	}, nil
}

// Executable is the program a compiler conventionally produces for source:
// the source stem inside dir.
func Executable(dir, source string) string {
	return filepath.Join(dir, submission.Stem(source))
}

// CleanupArtifacts removes intermediate files with the given extensions that
// compiling source left in dir. Missing files are ignored.
func CleanupArtifacts(dir, source string, exts []string) error {
	stem := submission.Stem(source)
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		err := os.Remove(filepath.Join(dir, stem+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove build artifact: %w", err)
		}
	}
	return nil
}
