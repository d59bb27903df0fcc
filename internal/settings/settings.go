// Package settings persists the user-editable configuration (config.json).
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"manga-merger/internal/library"
)

// DefaultPort is used when config.json has no port.
const DefaultPort = 3636

// Settings is the content of config.json
type Settings struct {
	MainPath   string `json:"main_path"`
	ExportPath string `json:"export_path"`
	SortMode   string `json:"sort_mode"`
	Port       int    `json:"port,omitempty"`
}

// Update is a partial settings change; nil fields keep their current value.
type Update struct {
	MainPath   *string `json:"main_path"`
	ExportPath *string `json:"export_path"`
	SortMode   *string `json:"sort_mode"`
	Port       *int    `json:"port"`
}

func (s *Settings) applyDefaults() {
	if s.SortMode == "" {
		s.SortMode = string(library.SortByName)
	}
	s.SortMode = string(library.ParseSortMode(s.SortMode))
	if s.Port == 0 {
		s.Port = DefaultPort
	}
}

// Store guards a settings file.
type Store struct {
	path    string
	mu      sync.RWMutex
	current Settings
}

// Open loads the settings at path. A missing file yields defaults and is
// created on the first Save.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the file.
func (s *Store) Reload() error {
	var loaded Settings
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("error reading settings: %w", err)
	default:
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("error parsing settings %s: %w", s.path, err)
		}
	}
	loaded.applyDefaults()

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply merges u into the current settings and saves them.
func (s *Store) Apply(u Update) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if u.MainPath != nil {
		next.MainPath = *u.MainPath
	}
	if u.ExportPath != nil {
		next.ExportPath = *u.ExportPath
	}
	if u.SortMode != nil {
		next.SortMode = *u.SortMode
	}
	if u.Port != nil {
		next.Port = *u.Port
	}
	next.applyDefaults()

	if err := write(s.path, next); err != nil {
		return s.current, err
	}
	s.current = next
	return next, nil
}

func write(path string, st Settings) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing settings: %w", err)
	}
	return nil
}
