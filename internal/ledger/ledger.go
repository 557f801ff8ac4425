// Package ledger remembers which submission artifacts were graded, keyed by
// assignment and artifact name, together with the content digest graded.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS graded (
    assignment_id TEXT NOT NULL,
    artifact_key  TEXT NOT NULL,
    digest        TEXT NOT NULL,
    score         REAL NOT NULL,
    graded_at     DATETIME NOT NULL,
    PRIMARY KEY (assignment_id, artifact_key)
);
`

type Ledger struct {
	db *sql.DB
}

type Entry struct {
	AssignmentID string
	Key          string
	Digest       string
	Score        float64
	GradedAt     time.Time
}

// Open opens or creates the ledger database at path. ":memory:" gives a
// throwaway ledger.
func Open(path string) (*Ledger, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores or replaces the entry for one graded artifact.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.GradedAt.IsZero() {
		e.GradedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
INSERT INTO graded (assignment_id, artifact_key, digest, score, graded_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (assignment_id, artifact_key) DO UPDATE SET
    digest = excluded.digest,
    score = excluded.score,
    graded_at = excluded.graded_at`,
		e.AssignmentID, e.Key, e.Digest, e.Score, e.GradedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.Key, err)
	}
	return nil
}

// Digests returns the recorded digest of every artifact graded for the
// assignment.
func (l *Ledger) Digests(ctx context.Context, assignmentID string) (map[string]string, error) {
	rows, err := l.db.QueryContext(ctx, `
SELECT artifact_key, digest FROM graded WHERE assignment_id = ?`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list graded artifacts: %w", err)
	}
	defer rows.Close()

	res := map[string]string{}
	for rows.Next() {
		var key, digest string
		if err := rows.Scan(&key, &digest); err != nil {
			return nil, fmt.Errorf("failed to scan graded artifact: %w", err)
		}
		res[key] = digest
	}
	return res, rows.Err()
}
