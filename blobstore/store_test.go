package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/probingpt/internal/fs"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	data := []byte("le chat ||| the cat ||| 0.5")

	require.NoError(t, store.Put(ctx, "tables/fr-en.pbpt", data))

	blob, err := store.Open(ctx, "tables/fr-en.pbpt")
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 7)
	n, err := blob.ReadAt(ctx, buf, 12)
	require.NoError(t, err)
	assert.Equal(t, "the cat", string(buf[:n]))

	_, err = blob.ReadAt(ctx, buf, int64(len(data))-2)
	assert.ErrorIs(t, err, io.EOF)

	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)

	_, err = store.Open(ctx, "tables/missing.pbpt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	testStore(t, NewLocalStore(dir))

	_, err := os.Stat(filepath.Join(dir, "tables", "fr-en.pbpt"))
	require.NoError(t, err)
}

func TestLocalStore_AbsolutePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.pbpt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	blob, err := NewLocalStore("/elsewhere").Open(context.Background(), path)
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(3), blob.Size())
}

func TestLocalStore_PutFailureLeavesNothing(t *testing.T) {
	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{"write", fs.Fault{FailAfterBytes: 3}},
		{"sync", fs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", fs.Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", fs.Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ffs := fs.NewFaultyFS(nil)
			ffs.AddRule("pt.pbpt", tt.fault)
			store := &LocalStore{root: dir, fs: ffs}

			err := store.Put(context.Background(), "pt.pbpt", []byte("payload"))
			require.ErrorIs(t, err, fs.ErrInjected)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Len(t, ffs.Removed(), 1)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)
	assert.Equal(t, []string{"tables/fr-en.pbpt"}, store.List("tables/"))
}

func TestMemoryStore_PutCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "x", data))
	data[0] = 'z'

	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)
	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(all))
}
