package dirsource_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/autograder/internal/ledger"
	"github.com/programme-lv/autograder/internal/source"
	"github.com/programme-lv/autograder/internal/source/dirsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ source.Source = (*dirsource.Source)(nil)
var _ source.GradedRecorder = (*dirsource.Source)(nil)

func TestFetchAndUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob_2_9_a.c"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ann_1_9_a.c"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ann_1_9_a"), 0755))

	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	defer l.Close()
	src := dirsource.New(dir, l)

	subs, err := src.FetchNewOrChanged(ctx, "9", false)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "ann_1_9_a.c", subs[0].Key)
	assert.Equal(t, "ann", subs[0].StudentName)
	assert.Equal(t, "notes", subs[2].Key)
	assert.Empty(t, subs[2].StudentName)

	graded, err := src.ListAlreadyGraded(ctx)
	require.NoError(t, err)
	assert.Empty(t, graded)

	require.NoError(t, src.MarkGraded(ctx, "9", subs[0], 3))
	require.NoError(t, src.MarkGraded(ctx, "9", subs[1], 4))

	// bob resubmits
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob_2_9_a.c"), []byte("b2"), 0644))
	_, err = src.FetchNewOrChanged(ctx, "9", false)
	require.NoError(t, err)

	graded, err = src.ListAlreadyGraded(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann_1_9_a.c"}, graded)
}

func TestNoLedger(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ann_1_9_a.c"), []byte("a"), 0644))
	src := dirsource.New(dir, nil)

	subs, err := src.FetchNewOrChanged(context.Background(), "9", false)
	require.NoError(t, err)
	require.NoError(t, src.MarkGraded(context.Background(), "9", subs[0], 1))
	graded, err := src.ListAlreadyGraded(context.Background())
	require.NoError(t, err)
	assert.Empty(t, graded)
}
