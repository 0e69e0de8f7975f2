package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// FileStore keeps each collection in <dir>/<name>.json. The version of a
// collection is the xxhash of its file content, so edits made by other
// processes are detected as conflicts too.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// EnsureCollections creates the data directory and an empty array file for
// every missing collection.
func (s *FileStore) EnsureCollections(names ...string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	for _, name := range names {
		p := s.path(name)
		if _, err := os.Stat(p); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if err := os.WriteFile(p, emptyArray, 0o644); err != nil {
			return fmt.Errorf("create %s: %w", p, err)
		}
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, name string) (Snapshot, error) {
	return s.read(name)
}

func (s *FileStore) read(name string) (Snapshot, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{Data: emptyArray}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", name, err)
	}
	return Snapshot{Data: normalize(data), Version: xxhash.Sum64(data)}, nil
}

func (s *FileStore) Save(_ context.Context, name string, data []byte, expected uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(name)
	if err != nil {
		return 0, err
	}
	if current.Version != expected {
		return 0, ErrConflict
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return 0, fmt.Errorf("replace %s: %w", name, err)
	}
	return xxhash.Sum64(data), nil
}
