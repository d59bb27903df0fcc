// Package library browses the manga folders under the configured main path.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"manga-merger/internal/util"
)

var (
	// ErrFolderNotFound is returned for folders that do not exist under the root.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrUnsafePath is returned for paths that would leave the root.
	ErrUnsafePath = errors.New("unsafe path")
)

// SortMode orders chapter listings.
type SortMode string

const (
	SortByName SortMode = "name"
	SortByDate SortMode = "date"
)

// ParseSortMode maps unknown values to SortByName.
func ParseSortMode(s string) SortMode {
	if SortMode(strings.ToLower(strings.TrimSpace(s))) == SortByDate {
		return SortByDate
	}
	return SortByName
}

// Folder is a node of the folder tree.
type Folder struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`  // relative to the root, slash separated
	Count    int       `json:"count"` // chapter files directly inside
	Children []*Folder `json:"children"`
}

// FolderInfo is one entry of the flat folder scan.
type FolderInfo struct {
	Name     string   `json:"name"`  // relative to the root, slash separated
	Count    int      `json:"count"` // files directly inside
	Chapters []string `json:"chapters"`
}

// Library reads manga folders below Root.
type Library struct {
	Root   string
	Logger util.Logger
}

// New creates a library rooted at root.
func New(root string, logger util.Logger) *Library {
	if logger == nil {
		logger = &util.NoopLogger{}
	}
	return &Library{Root: root, Logger: logger}
}

// Resolve joins a slash separated relative path onto the root. Absolute paths
// and paths escaping the root are rejected.
func (l *Library) Resolve(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "\\") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}

	base := filepath.Clean(l.Root)
	full := filepath.Join(base, native)
	back, err := filepath.Rel(base, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return full, nil
}

// Tree builds the nested folder tree. Hidden folders are skipped, siblings are
// sorted by name and each folder counts the chapter files directly inside it.
// Unreadable folders are logged and contribute no children.
func (l *Library) Tree() []*Folder {
	return l.buildTree(filepath.Clean(l.Root))
}

func (l *Library) buildTree(dir string) []*Folder {
	tree := []*Folder{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.Logger.Warning(fmt.Sprintf("Error building tree at %s: %v", dir, err))
		return tree
	}

	for _, e := range entries {
		if !e.IsDir() || util.IsHidden(e.Name()) {
			continue
		}
		full := filepath.Join(dir, e.Name())
		rel, err := filepath.Rel(filepath.Clean(l.Root), full)
		if err != nil {
			continue
		}
		tree = append(tree, &Folder{
			Name:     e.Name(),
			Path:     filepath.ToSlash(rel),
			Count:    countChapters(full),
			Children: l.buildTree(full),
		})
	}
	return tree
}

func countChapters(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && util.IsChapterFile(e.Name()) {
			n++
		}
	}
	return n
}

// Scan lists every non-hidden folder below the root, including empty ones,
// sorted case-insensitively by relative path.
func (l *Library) Scan() ([]FolderInfo, error) {
	base := filepath.Clean(l.Root)
	results := []FolderInfo{}
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == base {
				return err
			}
			l.Logger.Warning(fmt.Sprintf("Error scanning %s: %v", path, err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == base {
			return nil
		}
		if util.IsHidden(d.Name()) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		results = append(results, FolderInfo{
			Name:     filepath.ToSlash(rel),
			Count:    countFiles(path),
			Chapters: []string{},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning folders: %w", err)
	}

	fold := cases.Fold()
	sort.SliceStable(results, func(i, j int) bool {
		return fold.String(results[i].Name) < fold.String(results[j].Name)
	})
	return results, nil
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}

// Chapters lists the PDF and CBZ files of a folder.
func (l *Library) Chapters(rel string, mode SortMode) ([]string, error) {
	dir, err := l.Resolve(rel)
	if err != nil {
		return nil, err
	}
	if !util.DirExists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, rel)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading folder %s: %w", rel, err)
	}

	type chapter struct {
		name    string
		modTime int64
	}
	var chapters []chapter
	for _, e := range entries {
		if e.IsDir() || !util.IsChapterFile(e.Name()) {
			continue
		}
		c := chapter{name: e.Name()}
		if mode == SortByDate {
			info, err := e.Info()
			if err != nil {
				l.Logger.Warning(fmt.Sprintf("Cannot stat %s: %v", e.Name(), err))
				continue
			}
			c.modTime = info.ModTime().UnixNano()
		}
		chapters = append(chapters, c)
	}

	fold := cases.Fold()
	sort.SliceStable(chapters, func(i, j int) bool {
		if mode == SortByDate && chapters[i].modTime != chapters[j].modTime {
			return chapters[i].modTime < chapters[j].modTime
		}
		return fold.String(chapters[i].name) < fold.String(chapters[j].name)
	})

	names := make([]string, len(chapters))
	for i, c := range chapters {
		names[i] = c.name
	}
	return names, nil
}
