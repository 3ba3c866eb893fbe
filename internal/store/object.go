// Package store persists partitioned parquet tables in object storage and
// implements the merge-dedupe write discipline.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// ErrNotExist reports that an object is absent. Callers treat it as "start
// empty"; every other read failure is a genuine storage error and must
// propagate.
var ErrNotExist = errors.New("object does not exist")

// ObjectStore is the minimal surface the pipeline needs from object
// storage. GCSStore is the production implementation; MemoryStore backs
// tests and offline runs.
type ObjectStore interface {
	Download(ctx context.Context, name string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	Copy(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// GCSStore reads and writes objects in one GCS bucket. Credentials come
// from application default credentials; sourcing them is not this
// package's concern.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a client and binds it to bucket.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error { return s.client.Close() }

func (s *GCSStore) Download(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, name, ErrNotExist)
		}
		return nil, fmt.Errorf("open gs://%s/%s: %w", s.bucket, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, name, err)
	}
	return data, nil
}

func (s *GCSStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

func (s *GCSStore) Copy(ctx context.Context, src, dst string) error {
	bkt := s.client.Bucket(s.bucket)
	if _, err := bkt.Object(dst).CopierFrom(bkt.Object(src)).Run(ctx); err != nil {
		return fmt.Errorf("copy gs://%s/%s -> %s: %w", s.bucket, src, dst, err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
		return fmt.Errorf("delete gs://%s/%s: %w", s.bucket, name, err)
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s*: %w", s.bucket, prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}
