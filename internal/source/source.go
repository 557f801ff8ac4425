// Package source defines where submissions come from.
package source

import (
	"context"

	"github.com/programme-lv/autograder/internal/submission"
)

// Source supplies the submission artifacts of one assignment.
type Source interface {
	// FetchNewOrChanged makes the latest artifacts available locally and
	// lists them. forceAll fetches every artifact even if unchanged.
	FetchNewOrChanged(ctx context.Context, assignmentID string, forceAll bool) ([]submission.Submission, error)
	// ListAlreadyGraded returns the keys of fetched artifacts that were
	// graded before and have not changed since.
	ListAlreadyGraded(ctx context.Context) ([]string, error)
}

// GradedRecorder is implemented by sources that remember what was graded.
type GradedRecorder interface {
	MarkGraded(ctx context.Context, assignmentID string, sub submission.Submission, score float64) error
}
