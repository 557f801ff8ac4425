package submission_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/programme-lv/autograder/internal/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		fname    string
		name     string
		id       string
		assign   string
		original string
		stem     string
	}{
		{"jamesw98_1234_4242_p2.hs", "jamesw98", "1234", "4242", "p2.hs", "jamesw98_1234_4242_p2"},
		{"john-smith_77_9_quote_picker.py", "john-smith", "77", "9", "quote_picker.py", "john-smith_77_9_quote_picker"},
		{"anna_5.c", "anna", "5", "", "", "anna_5"},
	}
	for _, tt := range tests {
		t.Run(tt.fname, func(t *testing.T) {
			sub, err := submission.ParseName(tt.fname)
			require.NoError(t, err)
			assert.Equal(t, tt.name, sub.StudentName)
			assert.Equal(t, tt.id, sub.StudentID)
			assert.Equal(t, tt.assign, sub.AssignmentID)
			assert.Equal(t, tt.original, sub.OriginalName)
			assert.Equal(t, tt.stem, sub.Stem())
			assert.Equal(t, tt.fname, sub.Key)
		})
	}
}

func TestParseNameRejectsUnconventionalNames(t *testing.T) {
	for _, fname := range []string{"results.csv", "_123_x.c", "noid_.c"} {
		_, err := submission.ParseName(fname)
		assert.Error(t, err, fname)
	}
}

func TestLoadComputesDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bob_42_7_main.c")
	require.NoError(t, os.WriteFile(path, []byte("int main(){}"), 0644))

	sub, err := submission.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bob", sub.StudentName)
	assert.Equal(t, "42", sub.StudentID)
	assert.Len(t, sub.Digest, 64)

	again, err := submission.FileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, sub.Digest, again)
}

func TestLoadRecordsModificationTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bob_42_7_main.c")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, when, when))

	sub, err := submission.Load(path)
	require.NoError(t, err)
	assert.True(t, when.Equal(sub.Modified))
}
