package sqspub_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/programme-lv/autograder/api"
	"github.com/programme-lv/autograder/internal/publish"
	"github.com/programme-lv/autograder/internal/publish/sqspub"
	"github.com/programme-lv/autograder/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ publish.Publisher = (*sqspub.Publisher)(nil)

type fakeSender struct {
	bodies []string
	failOn string
}

func (f *fakeSender) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	body := aws.ToString(in.MessageBody)
	if f.failOn != "" && strings.Contains(body, f.failOn) {
		return nil, errors.New("queue unavailable")
	}
	f.bodies = append(f.bodies, body)
	return &sqs.SendMessageOutput{}, nil
}

func TestPublishSendsOneMessagePerRow(t *testing.T) {
	fb := filepath.Join(t.TempDir(), "ann.results.txt")
	long := strings.Repeat("x", api.MaxFeedbackWidth+10)
	require.NoError(t, os.WriteFile(fb, []byte("Your score: 7/10\n"+long), 0644))

	sender := &fakeSender{}
	p := sqspub.New(sender, "https://sqs.example/q", nil)
	err := p.Publish(context.Background(), "42", []results.Row{
		{StudentName: "ann", StudentID: "1", Score: 7, FeedbackPath: fb},
		{StudentName: "bob", StudentID: "2", Score: 0},
	})
	require.NoError(t, err)
	require.Len(t, sender.bodies, 2)

	var msg api.GradeUpload
	require.NoError(t, json.Unmarshal([]byte(sender.bodies[0]), &msg))
	assert.Equal(t, "42", msg.AssignmentID)
	assert.Equal(t, "ann", msg.StudentName)
	assert.Equal(t, 7.0, msg.Score)
	assert.True(t, strings.HasPrefix(msg.Feedback, "Your score: 7/10\n"))
	assert.True(t, strings.HasSuffix(msg.Feedback, "[...]"))
}

func TestPublishReportsFailuresAndContinues(t *testing.T) {
	sender := &fakeSender{failOn: `"student_id":"1"`}
	p := sqspub.New(sender, "q", nil)
	err := p.Publish(context.Background(), "42", []results.Row{
		{StudentName: "ann", StudentID: "1", Score: 1},
		{StudentName: "bob", StudentID: "2", Score: 2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "student 1")
	assert.Len(t, sender.bodies, 1)
}

func TestPublishIncludesAttachments(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test_log.txt")
	require.NoError(t, os.WriteFile(logPath, []byte("String_reverse(): 5\n"), 0644))

	sender := &fakeSender{}
	p := sqspub.New(sender, "q", nil)
	err := p.Publish(context.Background(), "42", []results.Row{
		{StudentName: "ann", StudentID: "1", Score: 5, Attachments: []string{logPath, filepath.Join(dir, "gone.txt")}},
	})
	require.NoError(t, err)
	require.Len(t, sender.bodies, 1)

	var msg api.GradeUpload
	require.NoError(t, json.Unmarshal([]byte(sender.bodies[0]), &msg))
	assert.Equal(t, []api.Attachment{{Name: "test_log.txt", Content: "String_reverse(): 5\n"}}, msg.Attachments)
}
