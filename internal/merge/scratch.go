package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// scratchDir is a private working directory owned by a single merge call.
type scratchDir struct {
	path string
	once sync.Once
	err  error
}

func newScratchDir(parent, prefix string) (*scratchDir, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, fmt.Errorf("failed to create temp directory %s: %w", parent, err)
		}
	}
	dir, err := os.MkdirTemp(parent, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &scratchDir{path: dir}, nil
}

// Path returns the directory path. It must not be used after Release.
func (s *scratchDir) Path() string {
	return s.path
}

// Join returns a path inside the scratch directory.
func (s *scratchDir) Join(name string) string {
	return filepath.Join(s.path, name)
}

// Release removes the directory and everything in it. Safe to call more than once.
func (s *scratchDir) Release() error {
	s.once.Do(func() {
		s.err = os.RemoveAll(s.path)
	})
	return s.err
}
