// Package sqspub publishes grades to an SQS queue, one message per student.
package sqspub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/autograder/api"
	"github.com/programme-lv/autograder/internal/results"
)

const DefaultRegion = "eu-central-1"

// Sender is the subset of *sqs.Client the publisher uses.
type Sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

var _ Sender = (*sqs.Client)(nil)

type Publisher struct {
	client   Sender
	queueUrl string
	log      *slog.Logger
}

func New(client Sender, queueUrl string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{client: client, queueUrl: queueUrl, log: log}
}

// Connect loads the default AWS configuration for region.
func Connect(ctx context.Context, queueUrl, region string, log *slog.Logger) (*Publisher, error) {
	if queueUrl == "" {
		return nil, fmt.Errorf("sqs queue url is required")
	}
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return New(sqs.NewFromConfig(cfg), queueUrl, log), nil
}

// Publish sends every row and keeps going after a failed message. The
// returned error joins all failures.
func (p *Publisher) Publish(ctx context.Context, assignmentID string, rows []results.Row) error {
	var errs []error
	for _, row := range rows {
		msg := api.GradeUpload{
			AssignmentID: assignmentID,
			StudentName:  row.StudentName,
			StudentID:    row.StudentID,
			Score:        row.Score,
			FeedbackFile: row.FeedbackPath,
		}
		if row.FeedbackPath != "" {
			data, err := os.ReadFile(row.FeedbackPath)
			if err != nil {
				p.log.Warn("failed to read feedback", "path", row.FeedbackPath, "error", err)
			} else {
				msg.Feedback = api.TrimToRect(string(data), api.MaxFeedbackHeight, api.MaxFeedbackWidth)
			}
		}
		for _, path := range row.Attachments {
			data, err := os.ReadFile(path)
			if err != nil {
				p.log.Warn("failed to read attachment", "path", path, "error", err)
				continue
			}
			msg.Attachments = append(msg.Attachments, api.Attachment{
				Name:    filepath.Base(path),
				Content: api.TrimToRect(string(data), api.MaxFeedbackHeight, api.MaxFeedbackWidth),
			})
		}
		if err := p.send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("student %s: %w", row.StudentID, err))
			continue
		}
		p.log.Debug("published grade", "student", row.StudentName, "score", row.Score)
	}
	return errors.Join(errs...)
}

func (p *Publisher) send(ctx context.Context, msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueUrl),
		MessageBody: aws.String(string(b)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
