package blob

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New picks the store configured by conf.Driver; the returned closer releases its client.
func New(ctx context.Context, conf core.StorageConfig) (core.BlobStore, io.Closer, error) {
	switch conf.Driver {
	case "gcs":
		store, client, err := NewGCSStore(ctx, conf.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, client, nil
	case "", "local":
		dir := conf.LocalDir
		if dir == "" {
			dir = "uploads"
		}
		store, err := NewLocalStore(dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nopCloser{}, nil
	default:
		return nil, nil, errors.Errorf("unknown storage driver %q", conf.Driver)
	}
}
