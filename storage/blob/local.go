// Package blob implements core.BlobStore on a local directory or a Google Cloud Storage bucket.
package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
)

var errInvalidKey = errors.New("invalid blob key")

// LocalStore keeps blobs as files under a root directory.
type LocalStore struct {
	root string
}

var _ core.BlobStore = (*LocalStore)(nil) // interface compliance check

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "blob.NewLocalStore")
	}
	if err = os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, "blob.NewLocalStore")
	}
	return &LocalStore{root: root}, nil
}

// path maps key to a file under root, rejecting keys that escape it.
func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", errInvalidKey
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", errInvalidKey
	}
	return p, nil
}

func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return errors.Wrap(err, "creating blob dir")
	}

	// write to a temp file first so readers never see partial content
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return errors.Wrap(err, "creating blob")
	}
	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "writing blob")
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "writing blob")
	}
	return errors.Wrap(os.Rename(tmp.Name(), p), "writing blob")
}

func (s *LocalStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, core.ErrBlobNotFound
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.ErrBlobNotFound
		}
		return nil, errors.Wrap(err, "opening blob")
	}
	return f, nil
}

// Delete is a no-op for missing keys.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "deleting blob")
	}
	return nil
}
