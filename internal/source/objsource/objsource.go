// Package objsource fetches submissions from an S3-compatible bucket into
// a local directory.
package objsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/programme-lv/autograder/internal/ledger"
	"github.com/programme-lv/autograder/internal/source/dirsource"
	"github.com/programme-lv/autograder/internal/submission"
)

// Config holds object storage settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to "<assignmentID>/" when listing objects.
	Prefix string
}

// Store is the subset of *minio.Client the source uses.
type Store interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	FGetObject(ctx context.Context, bucket, object, filePath string, opts minio.GetObjectOptions) error
}

var _ Store = (*minio.Client)(nil)

type Source struct {
	store  Store
	cfg    Config
	dir    string
	ledger *ledger.Ledger
	log    *slog.Logger

	mu         sync.Mutex
	assignment string
	fetched    []submission.Submission
}

// Dial connects to the object store described by cfg.
func Dial(cfg Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object storage bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}
	return client, nil
}

// New downloads into dir. A nil ledger disables already-graded detection.
func New(store Store, cfg Config, dir string, l *ledger.Ledger, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	return &Source{store: store, cfg: cfg, dir: dir, ledger: l, log: log}
}

func (s *Source) prefix(assignmentID string) string {
	p := path.Join(s.cfg.Prefix, assignmentID)
	return strings.TrimPrefix(p, "/") + "/"
}

// FetchNewOrChanged downloads objects whose local copy is missing or older
// than the object, or all of them when forceAll is set.
func (s *Source) FetchNewOrChanged(ctx context.Context, assignmentID string, forceAll bool) ([]submission.Submission, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	objCh := s.store.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix(assignmentID),
		Recursive: true,
	})

	var objs []minio.ObjectInfo
	for obj := range objCh {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio list objects failed: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].Key < objs[j].Key })

	var subs []submission.Submission
	for _, obj := range objs {
		name := path.Base(obj.Key)
		local := filepath.Join(s.dir, name)

		if forceAll || stale(local, obj) {
			s.log.Info("downloading submission", "bucket", s.cfg.Bucket, "key", obj.Key)
			err := s.store.FGetObject(ctx, s.cfg.Bucket, obj.Key, local, minio.GetObjectOptions{})
			if err != nil {
				return nil, fmt.Errorf("minio get object %s failed: %w", obj.Key, err)
			}
		}

		sub, err := submission.Load(local)
		if err != nil {
			subs = append(subs, submission.Submission{Key: name, Path: local})
			continue
		}
		sub.Modified = obj.LastModified
		subs = append(subs, sub)
	}

	s.mu.Lock()
	s.assignment = assignmentID
	s.fetched = subs
	s.mu.Unlock()
	return subs, nil
}

func stale(local string, obj minio.ObjectInfo) bool {
	info, err := os.Stat(local)
	if err != nil {
		return true
	}
	if info.Size() != obj.Size {
		return true
	}
	return obj.LastModified.After(info.ModTime())
}

func (s *Source) ListAlreadyGraded(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	assignment, fetched := s.assignment, s.fetched
	s.mu.Unlock()
	if s.ledger == nil || len(fetched) == 0 {
		return nil, nil
	}
	return dirsource.Unchanged(ctx, s.ledger, assignment, fetched)
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
