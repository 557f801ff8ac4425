// Package submission describes student submission artifacts and the
// filename convention they are stored under.
package submission

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Submission is one student's artifact as discovered on disk.
//
// Artifacts are named <studentName>_<studentId>_<assignmentId>_<originalName>.<ext>,
// e.g. jamesw98_1234_4242_p2.hs.
type Submission struct {
	StudentName  string
	StudentID    string
	AssignmentID string
	OriginalName string

	// Key is the artifact's file name inside the grading directory.
	Key string
	// Path is the absolute (or caller-relative) path to the artifact.
	Path string
	// Digest is the hex sha256 of the artifact content, empty if not computed.
	Digest string
	// Modified is when the artifact was uploaded or last written.
	Modified time.Time
}

// Stem is the artifact name up to the first dot. It names the student's
// working directory and, in compiled mode, the produced executable.
func (s Submission) Stem() string {
	return Stem(s.Key)
}

func Stem(fname string) string {
	base := filepath.Base(fname)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// ParseName splits an artifact file name on '_' and takes the first two
// segments as student name and id.
func ParseName(fname string) (Submission, error) {
	base := filepath.Base(fname)
	parts := strings.SplitN(base, "_", 4)
	if len(parts) < 2 || parts[0] == "" || Stem(parts[1]) == "" {
		return Submission{}, fmt.Errorf("file name %q does not follow <name>_<id>_<assignment>_<file>", base)
	}

	sub := Submission{
		StudentName: parts[0],
		StudentID:   Stem(parts[1]),
		Key:         base,
	}
	if len(parts) >= 3 {
		sub.AssignmentID = Stem(parts[2])
	}
	if len(parts) == 4 {
		sub.OriginalName = parts[3]
	}
	return sub, nil
}

// Load parses the artifact name at path and fills in its content digest
// and modification time.
func Load(path string) (Submission, error) {
	sub, err := ParseName(path)
	if err != nil {
		return Submission{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	sub.Path = path
	sub.Modified = info.ModTime()
	sub.Digest, err = FileDigest(path)
	if err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
