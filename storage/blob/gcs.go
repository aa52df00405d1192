package blob

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
)

// GCSStore keeps blobs in a Google Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
}

var _ core.BlobStore = (*GCSStore)(nil) // interface compliance check

// NewGCSStore connects with Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, *storage.Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "blob.NewGCSStore")
	}
	return &GCSStore{bucket: client.Bucket(bucket)}, client, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "uploading blob")
	}
	return errors.Wrap(w.Close(), "uploading blob")
}

func (s *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, core.ErrBlobNotFound
		}
		return nil, errors.Wrap(err, "downloading blob")
	}
	return r, nil
}

// Delete is a no-op for missing keys.
func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, "deleting blob")
	}
	return nil
}
