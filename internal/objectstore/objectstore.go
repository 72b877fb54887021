// Package objectstore stores uploaded CSV statements in a Cloud Storage
// bucket between the upload request and the ingestion worker.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// ObjectStore provides an interface for statement blob storage.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// Upload stores a statement blob under the given object name.
	Upload(ctx context.Context, objectName string, data []byte) error

	// Download returns the bytes of a previously uploaded statement.
	Download(ctx context.Context, objectName string) ([]byte, error)
}

// GCSStore is the Cloud Storage implementation of ObjectStore. It
// assumes Application Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore creates a store over the given bucket.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Upload stores a statement blob under the given object name.
func (s *GCSStore) Upload(ctx context.Context, objectName string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("objectstore: write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("objectstore: finalize upload %q: %w", objectName, err)
	}
	return nil
}

// Download returns the bytes of a previously uploaded statement.
func (s *GCSStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("objectstore: open object %q: %w", objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read object %q: %w", objectName, err)
	}
	return data, nil
}

// Close releases the underlying storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
