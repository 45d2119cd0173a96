package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/hupe1980/probingpt/internal/fs"
	"github.com/hupe1980/probingpt/internal/mmap"
)

var tmpSeq atomic.Uint64

// LocalStore implements Store on the local filesystem.
type LocalStore struct {
	root string
	fs   fs.FileSystem
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a LocalStore rooted at root. Relative names are
// joined to root; an empty root resolves them against the working directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, fs: fs.Default}
}

func (s *LocalStore) path(name string) string {
	if filepath.IsAbs(name) || s.root == "" {
		return name
	}
	return filepath.Join(s.root, name)
}

// Open maps the blob read-only. Index lookups are random point reads, so
// the mapping is advised accordingly.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	m, err := mmap.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessRandom)
	return &localBlob{m: m}, nil
}

// Put writes the blob to a temporary file and renames it into place.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	dst := s.path(name)
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmpName := fmt.Sprintf("%s.tmp-%d-%d", dst, os.Getpid(), tmpSeq.Add(1))
	tmp, err := s.fs.OpenFile(tmpName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if err := writeSynced(tmp, data); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("blobstore: write %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, dst); err != nil {
		_ = s.fs.Remove(tmpName)
		return err
	}
	return nil
}

func writeSynced(f fs.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Bytes() ([]byte, error) {
	data := b.m.Bytes()
	if data == nil && b.m.Size() > 0 {
		return nil, mmap.ErrClosed
	}
	return data, nil
}
