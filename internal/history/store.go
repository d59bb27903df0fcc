package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/text/cases"

	"manga-merger/internal/util"
)

var (
	// ErrNoHistory is returned when a folder has no history file.
	ErrNoHistory = errors.New("no history found")
	// ErrVolumeNotFound is returned when deleting a volume that is not recorded.
	ErrVolumeNotFound = errors.New("volume not found")
)

// Summary describes the latest merge recorded for one manga folder.
type Summary struct {
	Manga       string `json:"manga"` // folder relative to the library root, slash separated
	LastDate    string `json:"last_date"`
	LastVolume  string `json:"last_volume"`
	LastChapter string `json:"last_chapter"`
}

// Store reads and writes history files. Writes to one folder are serialized
// through a lock file next to history.json, so concurrent merges of the same
// manga do not lose entries.
type Store struct {
	Now    func() time.Time
	Logger util.Logger
}

// NewStore creates a store using the wall clock.
func NewStore(logger util.Logger) *Store {
	if logger == nil {
		logger = &util.NoopLogger{}
	}
	return &Store{Now: time.Now, Logger: logger}
}

// Path returns the history file of a manga folder.
func Path(folder string) string {
	return filepath.Join(folder, FileName)
}

func lockPath(folder string) string {
	return filepath.Join(folder, "."+FileName+".lock")
}

// Load reads the history of a manga folder.
func (s *Store) Load(folder string) (*History, error) {
	h, err := readFile(Path(folder))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoHistory
	}
	return h, err
}

// Record stores the chapters merged into volume, replacing an earlier entry
// for the same volume.
func (s *Store) Record(folder, volume string, chapters []string, kind string) (Entry, error) {
	entry := NewEntry(kind, chapters, s.Now())
	err := s.update(folder, func(h *History) error {
		h.Set(volume, entry)
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.Logger.Info(fmt.Sprintf("History updated for %s: %s", filepath.Base(folder), volume))
	return entry, nil
}

// Delete removes a volume from the history of a manga folder.
func (s *Store) Delete(folder, volume string) error {
	if !util.FileExists(Path(folder)) {
		return ErrNoHistory
	}
	return s.update(folder, func(h *History) error {
		if !h.Delete(volume) {
			return ErrVolumeNotFound
		}
		return nil
	})
}

// update runs a read-modify-write cycle on the history file under its lock.
func (s *Store) update(folder string, modify func(*History) error) error {
	lock := flock.New(lockPath(folder))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("error locking history: %w", err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.Logger.Warning(fmt.Sprintf("Failed to unlock history of %s: %v", folder, err))
		}
	}()

	path := Path(folder)
	h, err := readFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		h = New()
	} else if err != nil {
		return err
	}

	if err := modify(h); err != nil {
		return err
	}
	return writeFile(path, h)
}

// Summaries walks root for history files and reports the last volume of
// each. Hidden directories are skipped and unreadable files are logged and
// ignored. The result is sorted case-insensitively by manga.
func (s *Store) Summaries(root string) ([]Summary, error) {
	results := []Summary{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.Logger.Warning(fmt.Sprintf("Error walking %s: %v", path, err))
			return nil
		}
		if d.IsDir() {
			if path != root && util.IsHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != FileName {
			return nil
		}

		h, err := readFile(path)
		if err != nil {
			s.Logger.Warning(fmt.Sprintf("Error reading %s: %v", path, err))
			return nil
		}
		volume, entry, ok := h.Last()
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		date := entry.Date
		if date == "" {
			date = "Unknown"
		}
		results = append(results, Summary{
			Manga:       filepath.ToSlash(rel),
			LastDate:    date,
			LastVolume:  volume,
			LastChapter: entry.LastChapter(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning histories: %w", err)
	}

	fold := cases.Fold()
	sort.SliceStable(results, func(i, j int) bool {
		return fold.String(results[i].Manga) < fold.String(results[j].Manga)
	})
	return results, nil
}

func readFile(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	h := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return h, nil
	}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return h, nil
}

// writeFile replaces the history file with an indented rendering of h.
func writeFile(path string, h *History) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("error marshaling history: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("error formatting history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error writing history: %w", err)
	}
	return nil
}
