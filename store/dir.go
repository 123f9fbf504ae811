package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore implements Store using one file per key in a directory.
// Writes go through a synced temp file and a rename, so a reader never sees
// a half-written record even if the host is killed mid-write.
type DirStore struct {
	dir string
}

// NewDirStore creates a DirStore rooted at dir, creating the directory if
// needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Get(key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

func (s *DirStore) Set(key, value string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path(key))
}

func (s *DirStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DirStore) Close() error {
	return nil
}

func (s *DirStore) path(key string) string {
	return filepath.Join(s.dir, escape(key)+".json")
}

// escape maps a key to a file name that is valid on every platform; ':' is
// reserved on Windows.
func escape(key string) string {
	r := strings.NewReplacer("/", "__", "\\", "__", ":", "_c_")
	return r.Replace(key)
}
