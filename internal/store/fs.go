package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/OldStager01/forecast-autoscaler/pkg/apperrors"
)

// FSStore keeps blobs as files under {root}/{container}/{key}.
type FSStore struct {
	fs        afero.Fs
	root      string
	container string
}

// NewFSStore serves blobs from a directory on the local disk.
func NewFSStore(root, container string) (*FSStore, error) {
	return NewFSStoreWithFs(afero.NewOsFs(), root, container)
}

// NewFSStoreWithFs serves blobs from any afero filesystem, in-memory ones included.
func NewFSStoreWithFs(fsys afero.Fs, root, container string) (*FSStore, error) {
	if root == "" {
		return nil, apperrors.Configuration("store.NewFSStore", "root directory is required", nil)
	}
	if container == "" {
		return nil, apperrors.Configuration("store.NewFSStore", "container is required", nil)
	}
	return &FSStore{fs: fsys, root: root, container: container}, nil
}

func (s *FSStore) dir() string {
	return filepath.Join(s.root, s.container)
}

func (s *FSStore) Authenticate(ctx context.Context) (Session, error) {
	info, err := s.fs.Stat(s.dir())
	if err != nil {
		return nil, apperrors.Authentication("store.Authenticate", fmt.Sprintf("container directory %s not accessible", s.dir()), err)
	}
	if !info.IsDir() {
		return nil, apperrors.Authentication("store.Authenticate", fmt.Sprintf("%s is not a directory", s.dir()), nil)
	}
	return &fsSession{store: s}, nil
}

type fsSession struct {
	store *FSStore
}

func (f *fsSession) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(f.store.dir(), filepath.FromSlash(clean[1:])), nil
}

func (f *fsSession) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "store.Get"

	if err := ctx.Err(); err != nil {
		return nil, apperrors.DataUnavailable(op, key, err)
	}

	p, err := f.path(key)
	if err != nil {
		return nil, apperrors.DataUnavailable(op, key, err)
	}

	data, err := afero.ReadFile(f.store.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.DataUnavailable(op, fmt.Sprintf("blob %s not found", key), err)
		}
		return nil, apperrors.DataUnavailable(op, fmt.Sprintf("failed to read blob %s", key), err)
	}
	return data, nil
}

func (f *fsSession) Put(ctx context.Context, key string, data []byte) error {
	const op = "store.Put"

	if err := ctx.Err(); err != nil {
		return apperrors.DataUnavailable(op, key, err)
	}

	p, err := f.path(key)
	if err != nil {
		return apperrors.DataUnavailable(op, key, err)
	}
	if err := f.store.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return apperrors.DataUnavailable(op, fmt.Sprintf("failed to create directory for %s", key), err)
	}
	if err := afero.WriteFile(f.store.fs, p, data, 0o644); err != nil {
		return apperrors.DataUnavailable(op, fmt.Sprintf("failed to write blob %s", key), err)
	}
	return nil
}
