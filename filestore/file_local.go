package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const namePrefix = "src_"

type fileLocalStore struct {
	dir string // directory to store file
}

// NewFileLocalStore create new local file store, the directory is created if
// it does not exist. Empty dir means a fresh directory under os.TempDir.
func NewFileLocalStore(dir string) (FileStore, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "go-coderun")
		if err != nil {
			return nil, fmt.Errorf("filestore: create temp dir: %w", err)
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &fileLocalStore{dir: filepath.Clean(abs)}, nil
}

func (s *fileLocalStore) Dir() string {
	return s.dir
}

func (s *fileLocalStore) New(suffix string) (*os.File, error) {
	for range [50]struct{}{} {
		id, err := generateID()
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filepath.Join(s.dir, id+suffix), os.O_CREATE|os.O_RDWR|os.O_EXCL, 0600)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	return nil, errUniqueIDNotGenerated
}

func (s *fileLocalStore) Remove(path string) error {
	if s.dir != filepath.Dir(path) || !strings.HasPrefix(filepath.Base(path), namePrefix) {
		return fmt.Errorf("remove: %s does not have prefix %s", path, s.dir)
	}
	return os.Remove(path)
}

func (s *fileLocalStore) List() ([]string, error) {
	fi, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(fi))
	for _, f := range fi {
		if f.IsDir() || !strings.HasPrefix(f.Name(), namePrefix) {
			continue
		}
		names = append(names, filepath.Join(s.dir, f.Name()))
	}
	return names, nil
}

func (s *fileLocalStore) Sweep(maxAge time.Duration) (int, error) {
	names, err := s.List()
	if err != nil {
		return 0, err
	}
	deadline := time.Now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, p := range names {
		st, err := os.Stat(p)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if st.ModTime().After(deadline) {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
