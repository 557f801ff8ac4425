// Package publish defines where final grades go once a run completes.
package publish

import (
	"context"

	"github.com/programme-lv/autograder/internal/results"
)

// Publisher uploads the grades of one finished run.
type Publisher interface {
	Publish(ctx context.Context, assignmentID string, rows []results.Row) error
}
