package core

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrBlobNotFound = NewNotFoundError("file not found")
)

// KVStore is a small key/value store with absolute expiries (Redis in production).
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key until expireAt (zero: no expiry).
	Set(ctx context.Context, key, value string, expireAt time.Time) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, expireAt time.Time) (bool, error)
	Delete(ctx context.Context, key string) error
}

// BlobStore keeps uploaded files (member photos).
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
