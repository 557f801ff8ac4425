// Package dirsource reads submissions from a local directory and uses the
// ledger to tell which of them are unchanged since they were last graded.
package dirsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/programme-lv/autograder/internal/ledger"
	"github.com/programme-lv/autograder/internal/submission"
)

type Source struct {
	dir    string
	ledger *ledger.Ledger

	mu         sync.Mutex
	assignment string
	fetched    []submission.Submission
}

// New lists artifacts in dir. A nil ledger means nothing is ever reported
// as already graded.
func New(dir string, l *ledger.Ledger) *Source {
	return &Source{dir: dir, ledger: l}
}

// FetchNewOrChanged returns every regular file in the directory, sorted by
// name. Files that do not follow the naming convention are returned with
// only Key and Path set so the caller can decide what to do with them.
func (s *Source) FetchNewOrChanged(ctx context.Context, assignmentID string, forceAll bool) ([]submission.Submission, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var subs []submission.Submission
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		sub, err := submission.Load(path)
		if err != nil {
			subs = append(subs, submission.Submission{Key: e.Name(), Path: path})
			continue
		}
		subs = append(subs, sub)
	}

	s.mu.Lock()
	s.assignment = assignmentID
	s.fetched = subs
	s.mu.Unlock()
	return subs, nil
}

func (s *Source) ListAlreadyGraded(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	assignment, fetched := s.assignment, s.fetched
	s.mu.Unlock()
	if s.ledger == nil || len(fetched) == 0 {
		return nil, nil
	}
	return Unchanged(ctx, s.ledger, assignment, fetched)
}

func (s *Source) MarkGraded(ctx context.Context, assignmentID string, sub submission.Submission, score float64) error {
	if s.ledger == nil {
		return nil
	}
	return s.ledger.Record(ctx, ledger.Entry{
		AssignmentID: assignmentID,
		Key:          sub.Key,
		Digest:       sub.Digest,
		Score:        score,
	})
}

// Unchanged returns the keys of subs whose digest matches the one recorded
// in the ledger.
func Unchanged(ctx context.Context, l *ledger.Ledger, assignmentID string, subs []submission.Submission) ([]string, error) {
	digests, err := l.Digests(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, sub := range subs {
		if d, ok := digests[sub.Key]; ok && sub.Digest != "" && d == sub.Digest {
			keys = append(keys, sub.Key)
		}
	}
	return keys, nil
}
