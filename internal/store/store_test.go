package store

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePut(t *testing.T) {
	t.Run("Should create the root and write the artifact", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := New(fs, "/data/artifacts")

		path, err := s.Put("abc", ".jpg", []byte("payload"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/data/artifacts", "abc.jpg"), path)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("Should leave no temp files behind", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := New(fs, "/root")

		_, err := s.Put("one", ".webp", []byte("1"))
		require.NoError(t, err)

		entries, err := afero.ReadDir(fs, "/root")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "one.webp", entries[0].Name())
	})

	t.Run("Should replace an existing artifact", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := New(fs, "/root")

		_, err := s.Put("same", ".jpg", []byte("old"))
		require.NoError(t, err)
		path, err := s.Put("same", ".jpg", []byte("new"))
		require.NoError(t, err)

		data, err := s.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("Should keep a pre-existing file when the write fails", func(t *testing.T) {
		base := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(base, "/root/keep.jpg", []byte("original"), 0o644))
		s := New(afero.NewReadOnlyFs(base), "/root")

		_, err := s.Put("keep", ".jpg", []byte("replacement"))
		require.Error(t, err)

		data, err := afero.ReadFile(base, "/root/keep.jpg")
		require.NoError(t, err)
		assert.Equal(t, "original", string(data))
	})

	t.Run("Should reject ids that escape the root", func(t *testing.T) {
		s := New(afero.NewMemMapFs(), "/root")
		for _, id := range []string{"", ".", "..", "../evil", `a\b`, ".hidden"} {
			_, err := s.Put(id, ".jpg", []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
		}
	})
}

func TestStoreRemove(t *testing.T) {
	t.Run("Should delete an existing artifact", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s := New(fs, "/root")
		path, err := s.Put("gone", ".jpg", []byte("x"))
		require.NoError(t, err)

		require.NoError(t, s.Delete("gone", ".jpg"))

		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Should treat a missing file as success", func(t *testing.T) {
		s := New(afero.NewMemMapFs(), "/root")
		assert.NoError(t, s.Remove("/root/never-existed.jpg"))
	})
}
