// Package merge combines manga chapter files (PDF and CBZ) into one volume.
//
// A merge sorts the selected chapters by the first number in their names,
// converts every chapter into the output format, prepends a table of contents
// listing the chapters in the order the caller selected them, and writes the
// volume to <export root>/<manga>/<manga>_<volume>.<ext>. Chapters that are
// missing, unreadable or of an unknown type are skipped and reported; only a
// failure to produce the output file fails the merge.
package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"manga-merger/internal/util"
)

// Kind is an output format.
type Kind string

const (
	KindPDF Kind = "PDF"
	KindCBZ Kind = "CBZ"
)

// ParseKind accepts "pdf"/"cbz" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindPDF:
		return KindPDF, nil
	case KindCBZ:
		return KindCBZ, nil
	}
	return "", fmt.Errorf("unknown output type %q", s)
}

// Ext returns the file extension for the kind, including the dot.
func (k Kind) Ext() string {
	return "." + strings.ToLower(string(k))
}

// ChapterKind classifies a selected file by its extension.
type ChapterKind string

const (
	ChapterPDF         ChapterKind = "pdf"
	ChapterCBZ         ChapterKind = "cbz"
	ChapterImage       ChapterKind = "image"
	ChapterUnsupported ChapterKind = "unsupported"
)

func classify(name string, imageExts []string) ChapterKind {
	switch {
	case util.IsPDFFile(name):
		return ChapterPDF
	case util.IsCBZFile(name):
		return ChapterCBZ
	case util.HasExtension(name, imageExts):
		return ChapterImage
	default:
		return ChapterUnsupported
	}
}

// ChapterOutcome is the result of converting one selected chapter. Err is nil
// when the chapter contributed to the volume.
type ChapterOutcome struct {
	Index int // 1-based position in merge order
	Name  string
	Kind  ChapterKind
	Count int      // pages (PDF output) or images (CBZ output) added
	Files []string // scratch files holding the converted chapter
	Err   *ChapterError
}

// Skipped reports whether the chapter was left out of the volume.
func (o ChapterOutcome) Skipped() bool {
	return o.Err != nil
}

// Result describes a finished merge.
type Result struct {
	OutputPath string
	Kind       Kind
	Selected   []string // caller order, as listed in the table of contents
	Chapters   []ChapterOutcome
	Count      int // chapter pages or images, table of contents excluded
	TOCPages   int
}

// Included returns the names of chapters that made it into the volume, in
// merge order.
func (r *Result) Included() []string {
	var names []string
	for _, ch := range r.Chapters {
		if !ch.Skipped() {
			names = append(names, ch.Name)
		}
	}
	return names
}

// Skipped returns the errors of chapters left out of the volume.
func (r *Result) Skipped() []*ChapterError {
	var errs []*ChapterError
	for _, ch := range r.Chapters {
		if ch.Skipped() {
			errs = append(errs, ch.Err)
		}
	}
	return errs
}

// pdfcpu keeps its config directory setting in a package variable.
var disableConfigDir sync.Once

// Merger builds volumes. It holds no per-merge state, so one Merger can serve
// concurrent merges of different volumes.
type Merger struct {
	cfg    *Config
	logger util.Logger
}

// New creates a Merger. A nil cfg uses DefaultConfig and a nil logger discards
// messages.
func New(cfg *Config, logger util.Logger) *Merger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = &util.NoopLogger{}
	}
	disableConfigDir.Do(api.DisableConfigDir)
	return &Merger{cfg: cfg, logger: logger}
}

// Combine dispatches to CombinePDF or CombineCBZ.
func (m *Merger) Combine(kind Kind, sourceFolder string, selected []string, exportRoot, volumeName string) (*Result, error) {
	switch kind {
	case KindPDF:
		return m.CombinePDF(sourceFolder, selected, exportRoot, volumeName)
	case KindCBZ:
		return m.CombineCBZ(sourceFolder, selected, exportRoot, volumeName)
	}
	return nil, fmt.Errorf("unknown output type %q", kind)
}

// OutputPath returns where the volume of a manga folder is written.
func OutputPath(sourceFolder, exportRoot, volumeName string, kind Kind) string {
	manga := filepath.Base(filepath.Clean(sourceFolder))
	name := fmt.Sprintf("%s_%s%s", manga, util.SanitizeForFilesystem(volumeName), kind.Ext())
	return filepath.Join(exportRoot, manga, name)
}

// prepareOutput resolves the absolute output path and creates its directory.
func prepareOutput(sourceFolder, exportRoot, volumeName string, kind Kind) (string, error) {
	out, err := filepath.Abs(OutputPath(sourceFolder, exportRoot, volumeName, kind))
	if err != nil {
		return "", outputErr("resolve", exportRoot, err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", outputErr("mkdir", filepath.Dir(out), err)
	}
	return out, nil
}

// writeAtomic lets write produce a temporary file next to finalPath and then
// renames it into place, so finalPath never holds a partial volume.
func writeAtomic(finalPath string, write func(tmpPath string) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(finalPath), "."+filepath.Base(finalPath)+".*.part")
	if err != nil {
		return outputErr("create", finalPath, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := write(tmpPath); err != nil {
		os.Remove(tmpPath)
		return outputErr("write", finalPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return outputErr("rename", finalPath, err)
	}
	return nil
}

// locate checks that a selected chapter is a file inside sourceFolder. Names
// that are absolute or climb out of the folder are treated as missing.
func locate(sourceFolder, name string) (string, *ChapterError) {
	if !insideFolder(name) {
		return "", chapterErr(name, ErrMissingFile, fmt.Errorf("%q is outside the source folder", name))
	}
	src := filepath.Join(sourceFolder, name)
	info, err := os.Stat(src)
	if err != nil {
		return "", chapterErr(name, ErrMissingFile, err)
	}
	if !info.Mode().IsRegular() {
		return "", chapterErr(name, ErrMissingFile, fmt.Errorf("%s is not a regular file", src))
	}
	return src, nil
}

// insideFolder reports whether name stays within the folder it is joined to.
func insideFolder(name string) bool {
	if name == "" || filepath.IsAbs(name) || strings.ContainsRune(name, 0) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func (m *Merger) logSkipped(o ChapterOutcome) {
	m.logger.Warning(fmt.Sprintf("Skipped %s", o.Err))
}

func (m *Merger) releaseScratch(s *scratchDir) {
	if err := s.Release(); err != nil {
		m.logger.Warning(fmt.Sprintf("Failed to remove scratch directory %s: %v", s.Path(), err))
	}
}
