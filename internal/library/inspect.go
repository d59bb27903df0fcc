package library

import (
	"fmt"
	"os"
	"time"

	pdflib "github.com/ledongthuc/pdf"

	"manga-merger/internal/merge"
	"manga-merger/internal/util"
)

// ChapterInfo describes one chapter file.
type ChapterInfo struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`  // "pdf", "cbz" or "image"
	Pages    int       `json:"pages"` // PDF pages or archive images
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Error    string    `json:"error,omitempty"`
}

// Inspect reports the kind and page count of a chapter inside folder rel.
// An unreadable document is not an error: Pages is 0 and Error says why.
func (l *Library) Inspect(rel, name string) (*ChapterInfo, error) {
	dir, err := l.Resolve(rel)
	if err != nil {
		return nil, err
	}
	path, err := (&Library{Root: dir}).Resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", merge.ErrMissingFile, name)
	}

	ci := &ChapterInfo{Name: name, Size: info.Size(), Modified: info.ModTime()}
	switch {
	case util.IsPDFFile(name):
		ci.Kind = "pdf"
		ci.Pages, err = countPDFPages(path)
	case util.IsCBZFile(name):
		ci.Kind = "cbz"
		ci.Pages, err = countArchiveImages(path)
	case util.IsImageFile(name):
		ci.Kind = "image"
		ci.Pages = 1
	default:
		return nil, fmt.Errorf("%w: %s", merge.ErrUnsupportedFile, name)
	}
	if err != nil {
		l.Logger.Warning(fmt.Sprintf("Cannot inspect %s: %v", name, err))
		ci.Error = err.Error()
	}
	return ci, nil
}

// countPDFPages reads the page tree of a PDF. ledongthuc/pdf panics on some
// damaged files.
func countPDFPages(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", merge.ErrMalformedPDF, r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", merge.ErrMalformedPDF, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

func countArchiveImages(path string) (int, error) {
	a, err := merge.OpenArchive(path, util.ImageExtensions)
	if err != nil {
		return 0, err
	}
	defer a.Close()
	return a.Len(), nil
}
