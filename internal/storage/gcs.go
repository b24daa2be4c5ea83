// Package storage persists normalized invoice tables as parquet files in
// object storage, hive-partitioned by (year, month).
package storage

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/gmendonca/nfe-pipeline/internal/normalize"
)

// ObjectStore abstracts the object-storage operations the loader needs.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// Exists reports whether any object exists under the given directory
	// path.
	Exists(ctx context.Context, dir string) (bool, error)

	// DeleteContents removes every object under the given directory path.
	DeleteContents(ctx context.Context, dir string) error

	// WriteColumnar writes the whole table under basePath as parquet
	// files, one object per (year, month) partition.
	WriteColumnar(ctx context.Context, table *normalize.Table, basePath string) error
}

// GCSStore is the concrete ObjectStore backed by Google Cloud Storage.
// Paths are gs://bucket/prefix URIs.
type GCSStore struct {
	client *storage.Client
}

// NewGCSStore creates a GCSStore with a shared storage client. It assumes
// Application Default Credentials are configured.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Close closes the underlying storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// splitURI splits "gs://bucket/some/prefix" into bucket and object prefix.
func splitURI(uri string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("storage: invalid GCS URI %q", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", fmt.Errorf("storage: invalid GCS URI %q", uri)
	}
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix, nil
}

func (s *GCSStore) Exists(ctx context.Context, dir string) (bool, error) {
	bucket, prefix, err := splitURI(dir)
	if err != nil {
		return false, err
	}
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	_, err = it.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return true, nil
}

func (s *GCSStore) DeleteContents(ctx context.Context, dir string) error {
	bucket, prefix, err := splitURI(dir)
	if err != nil {
		return err
	}
	bkt := s.client.Bucket(bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("storage: list %s: %w", dir, err)
		}
		if err := bkt.Object(attrs.Name).Delete(ctx); err != nil {
			return fmt.Errorf("storage: delete %s/%s: %w", bucket, attrs.Name, err)
		}
	}
	return nil
}

func (s *GCSStore) WriteColumnar(ctx context.Context, table *normalize.Table, basePath string) error {
	bucket, prefix, err := splitURI(basePath)
	if err != nil {
		return err
	}
	bkt := s.client.Bucket(bucket)

	for _, group := range groupRows(table) {
		objName := group.dir + "/" + uuid.NewString() + ".parquet"
		if prefix != "" {
			objName = prefix + "/" + objName
		}

		w := bkt.Object(objName).NewWriter(ctx)
		if err := writeParquet(w, group.rows); err != nil {
			w.Close()
			return fmt.Errorf("storage: write %s: %w", objName, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("storage: finalize %s: %w", objName, err)
		}
	}
	return nil
}
