package merge

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"manga-merger/internal/util"
)

// Archive is an open CBZ with its page images in reading order.
type Archive struct {
	path    string
	reader  *zip.ReadCloser
	entries []*zip.File
}

// PageImage is one decoded page of an archive.
type PageImage struct {
	Index int    // 1-based position in reading order
	Name  string // member name inside the archive
	Image image.Image
}

// OpenArchive opens a CBZ and lists its image members. Members are filtered by
// extension and ordered with SortChapters.
func OpenArchive(archivePath string, exts []string) (*Archive, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchive, archivePath, err)
	}

	byName := make(map[string][]*zip.File)
	var names []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !util.HasExtension(f.Name, exts) {
			continue
		}
		if _, seen := byName[f.Name]; !seen {
			names = append(names, f.Name)
		}
		byName[f.Name] = append(byName[f.Name], f)
	}

	entries := make([]*zip.File, 0, len(names))
	for _, name := range SortChapters(names) {
		entries = append(entries, byName[name]...)
	}

	return &Archive{path: archivePath, reader: r, entries: entries}, nil
}

// Len returns the number of image members.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Name returns the member name of the i-th image (0-based).
func (a *Archive) Name(i int) string {
	return a.entries[i].Name
}

// Ext returns the lower-cased extension of the i-th image.
func (a *Archive) Ext(i int) string {
	return strings.ToLower(path.Ext(a.entries[i].Name))
}

// ReadRaw returns the stored bytes of the i-th image.
func (a *Archive) ReadRaw(i int) ([]byte, error) {
	f := a.entries[i]
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: open %s: %v", ErrArchive, a.path, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read %s: %v", ErrArchive, a.path, f.Name, err)
	}
	return data, nil
}

// DecodeRGB reads the i-th image and flattens it onto an opaque white page.
func (a *Archive) DecodeRGB(i int) (image.Image, error) {
	data, err := a.ReadRaw(i)
	if err != nil {
		return nil, err
	}
	return decodeRGB(data)
}

// Close releases the underlying zip reader.
func (a *Archive) Close() error {
	return a.reader.Close()
}

// EachPage decodes the pages of the archive with up to workers goroutines and
// calls fn for every page that decodes. Pages that fail to decode are logged
// and left out; a member that cannot be read stops the walk with ErrArchive.
// fn may be called concurrently.
func (a *Archive) EachPage(workers int, logger util.Logger, fn func(PageImage) error) error {
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i := 0; i < a.Len(); i++ {
		i := i
		g.Go(func() error {
			img, err := a.DecodeRGB(i)
			if errors.Is(err, ErrArchive) {
				return err
			}
			if err != nil {
				logger.Warning(fmt.Sprintf("Skipping page %s of %s: %v", a.Name(i), a.path, err))
				return nil
			}
			return fn(PageImage{Index: i + 1, Name: a.Name(i), Image: img})
		})
	}
	return g.Wait()
}

// ExtractImages decodes every page of a CBZ in reading order. An archive that
// cannot be opened or read yields no pages; pages that fail to decode are left
// out.
func ExtractImages(archivePath string, exts []string, logger util.Logger) []PageImage {
	a, err := OpenArchive(archivePath, exts)
	if err != nil {
		logger.Warning(fmt.Sprintf("Failed to open archive: %v", err))
		return nil
	}
	defer a.Close()

	slots := make([]*PageImage, a.Len())
	if err := a.EachPage(1, logger, func(p PageImage) error {
		slots[p.Index-1] = &p
		return nil
	}); err != nil {
		logger.Warning(fmt.Sprintf("Failed to read archive: %v", err))
		return nil
	}

	pages := make([]PageImage, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			pages = append(pages, *p)
		}
	}
	return pages
}

func decodeRGB(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	page := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(page, img, image.Pt(0, 0), 1.0), nil
}
