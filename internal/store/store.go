// Package store persists normalized artifacts under a storage root.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidID is returned for artifact IDs that cannot name a file inside
// the storage root.
var ErrInvalidID = errors.New("invalid artifact id")

// Store writes artifacts as <root>/<id><ext>. Writes are atomic: readers see
// either no file or the complete artifact.
type Store struct {
	fs   afero.Fs
	root string
}

func New(fs afero.Fs, root string) *Store {
	return &Store{
		fs:   fs,
		root: filepath.Clean(root),
	}
}

func (s *Store) Root() string {
	return s.root
}

// Path returns the deterministic artifact path for id and ext.
func (s *Store) Path(id, ext string) string {
	return filepath.Join(s.root, id+ext)
}

// ValidateID rejects IDs that would escape the storage root or name a
// hidden temp file.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidID, id)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidID, id)
	}
	return nil
}

// Put writes data to the artifact path for id, creating the storage root if
// needed. The bytes go to a temp file in the same directory which is renamed
// into place only after a successful write and sync.
func (s *Store) Put(id, ext string, data []byte) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}

	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage root: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.root, "."+id+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// cleanup runs on every failure path after the temp file exists
	cleanup := func() {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := s.fs.Chmod(tmpName, 0o644); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("failed to set artifact permissions: %w", err)
	}

	path := s.Path(id, ext)
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	return path, nil
}

// Read returns the bytes currently stored at path.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Delete removes the artifact for id and ext.
func (s *Store) Delete(id, ext string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return s.Remove(s.Path(id, ext))
}

// Remove deletes the file at path. A missing file is not an error.
func (s *Store) Remove(path string) error {
	err := s.fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
