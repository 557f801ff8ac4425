// Package workspace manages the grading directory: one private working
// directory per student plus the staging of files into it.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrCorrupt means a compressed artifact could not be decoded.
var ErrCorrupt = errors.New("corrupt compressed file")

type dirResult struct {
	path string
	err  error
}

// Workspace is safe for concurrent use. Each student directory is created
// at most once per Workspace even when sessions race for it.
type Workspace struct {
	root string
	dirs *xsync.MapOf[string, dirResult]
	log  *slog.Logger
}

func New(root string, log *slog.Logger) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve grading directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create grading directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Workspace{
		root: abs,
		dirs: xsync.NewMapOf[string, dirResult](),
		log:  log,
	}, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// Path joins name onto the grading directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.root, name)
}

// Dir returns the working directory for stem, creating it on first use.
// Existing directories from earlier runs are reused.
func (w *Workspace) Dir(stem string) (string, error) {
	if stem == "" || strings.ContainsAny(stem, `/\`) || stem == "." || stem == ".." {
		return "", fmt.Errorf("invalid working directory name %q", stem)
	}
	res, _ := w.dirs.LoadOrCompute(stem, func() dirResult {
		path := filepath.Join(w.root, stem)
		if err := os.MkdirAll(path, 0755); err != nil {
			return dirResult{err: fmt.Errorf("failed to create working directory: %w", err)}
		}
		w.log.Debug("created working directory", "path", path)
		return dirResult{path: path}
	})
	return res.path, res.err
}

// Stage copies src into dir under name and returns the destination path.
// A ".zst" source whose destination name lacks the suffix is decompressed.
func Stage(src, dir, name string) (string, error) {
	dst := filepath.Join(dir, name)
	if filepath.Ext(src) == ".zst" && filepath.Ext(name) != ".zst" {
		return dst, decompress(src, dst)
	}
	return dst, CopyFile(src, dst)
}

// CopyFile copies src to dst keeping the permission bits so executables
// stay executable.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	return writeFrom(in, dst, info.Mode().Perm())
}

func decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	d, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, src, err)
	}
	defer d.Close()
	return writeFrom(corruptReader{d}, dst, info.Mode().Perm())
}

// corruptReader marks every decoding error with ErrCorrupt.
type corruptReader struct {
	r io.Reader
}

func (c corruptReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return n, err
}

// writeFrom writes through a temp file and renames it into place so a
// failed copy never leaves a truncated file behind.
func writeFrom(r io.Reader, dst string, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".stage-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}
	return nil
}

// RemoveDirs deletes the named subdirectories of dir. Missing ones are
// ignored and every failure is reported.
func RemoveDirs(dir string, names []string) error {
	var errs []error
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.IsDir() {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
