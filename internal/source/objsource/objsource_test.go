package objsource_test

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/programme-lv/autograder/internal/ledger"
	"github.com/programme-lv/autograder/internal/source"
	"github.com/programme-lv/autograder/internal/source/objsource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ source.Source = (*objsource.Source)(nil)
var _ source.GradedRecorder = (*objsource.Source)(nil)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]string
	modified  time.Time
	downloads []string
	listed    string
}

func (f *fakeStore) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	f.listed = opts.Prefix
	f.mu.Unlock()

	ch := make(chan minio.ObjectInfo, len(f.objects)+1)
	for k, v := range f.objects {
		ch <- minio.ObjectInfo{Key: k, Size: int64(len(v)), LastModified: f.modified}
	}
	ch <- minio.ObjectInfo{Key: opts.Prefix + "dir/"}
	close(ch)
	return ch
}

func (f *fakeStore) FGetObject(ctx context.Context, bucket, object, filePath string, opts minio.GetObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[object]
	if !ok {
		return fmt.Errorf("no such object %s", object)
	}
	f.downloads = append(f.downloads, path.Base(object))
	return os.WriteFile(filePath, []byte(content), 0644)
}

func TestFetchDownloadsOnlyStaleObjects(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{
		objects: map[string]string{
			"courses/7/bob_2_7_a.c": "bob",
			"courses/7/ann_1_7_a.c": "ann",
		},
		modified: time.Now().Add(-time.Hour),
	}
	dir := t.TempDir()
	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	defer l.Close()

	src := objsource.New(store, objsource.Config{Bucket: "subs", Prefix: "courses"}, dir, l, nil)

	subs, err := src.FetchNewOrChanged(ctx, "7", false)
	require.NoError(t, err)
	assert.Equal(t, "courses/7/", store.listed)
	require.Len(t, subs, 2)
	assert.Equal(t, "ann", subs[0].StudentName)
	assert.Equal(t, filepath.Join(dir, "ann_1_7_a.c"), subs[0].Path)
	assert.True(t, store.modified.Equal(subs[0].Modified))
	assert.ElementsMatch(t, []string{"ann_1_7_a.c", "bob_2_7_a.c"}, store.downloads)

	require.NoError(t, src.MarkGraded(ctx, "7", subs[0], 1))

	// local copies are fresh, nothing is downloaded again
	store.downloads = nil
	_, err = src.FetchNewOrChanged(ctx, "7", false)
	require.NoError(t, err)
	assert.Empty(t, store.downloads)

	graded, err := src.ListAlreadyGraded(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann_1_7_a.c"}, graded)

	_, err = src.FetchNewOrChanged(ctx, "7", true)
	require.NoError(t, err)
	assert.Len(t, store.downloads, 2)
}
