package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"manga-merger/internal/util"
)

// CombinePDF merges the selected chapters of sourceFolder into one PDF volume.
// The returned error is non-nil only when the volume could not be written.
func (m *Merger) CombinePDF(sourceFolder string, selected []string, exportRoot, volumeName string) (*Result, error) {
	out, err := prepareOutput(sourceFolder, exportRoot, volumeName, KindPDF)
	if err != nil {
		m.logger.Error(fmt.Sprintf("combine_pdf error: %v", err))
		return nil, err
	}

	scratch, err := newScratchDir(m.cfg.TempDir, "manga-merge-pdf-")
	if err != nil {
		m.logger.Error(fmt.Sprintf("combine_pdf error: %v", err))
		return nil, outputErr("scratch", out, err)
	}
	defer m.releaseScratch(scratch)

	tocPath := scratch.Join("000_toc.pdf")
	if err := WriteTOCPDF(tocPath, selected, m.cfg); err != nil {
		m.logger.Error(fmt.Sprintf("combine_pdf error: %v", err))
		return nil, outputErr("toc", out, err)
	}

	result := &Result{
		OutputPath: out,
		Kind:       KindPDF,
		Selected:   append([]string(nil), selected...),
		TOCPages:   TOCPageCount(len(selected), m.cfg),
	}
	stream := []string{tocPath}

	for i, name := range SortChapters(selected) {
		o := m.pdfChapter(scratch, sourceFolder, name, i+1)
		result.Chapters = append(result.Chapters, o)
		if o.Skipped() {
			m.logSkipped(o)
			continue
		}
		stream = append(stream, o.Files...)
		result.Count += o.Count
		m.logger.Info(fmt.Sprintf("%s: %d pages added", name, o.Count))
	}

	if err := writeAtomic(out, func(tmpPath string) error {
		return writeStream(stream, tmpPath)
	}); err != nil {
		m.logger.Error(fmt.Sprintf("combine_pdf error: %v", err))
		return nil, err
	}

	m.logger.Info(fmt.Sprintf("PDF created with %d pages (+%d TOC): %s", result.Count, result.TOCPages, out))
	return result, nil
}

// pdfChapter turns one selected file into the PDF files holding its pages.
func (m *Merger) pdfChapter(scratch *scratchDir, sourceFolder, name string, index int) ChapterOutcome {
	o := ChapterOutcome{Index: index, Name: name, Kind: classify(name, m.cfg.ImageExtensions)}

	src, cerr := locate(sourceFolder, name)
	if cerr != nil {
		o.Err = cerr
		return o
	}

	switch o.Kind {
	case ChapterCBZ:
		files, err := m.archiveToPages(scratch, src, index)
		if err != nil {
			o.Err = chapterErr(name, ErrArchive, err)
			return o
		}
		o.Files, o.Count = files, len(files)
	case ChapterPDF:
		pages, err := countValidPages(src)
		if err != nil {
			o.Err = chapterErr(name, ErrMalformedPDF, err)
			return o
		}
		o.Files, o.Count = []string{src}, pages
	default:
		o.Err = chapterErr(name, ErrUnsupportedFile, nil)
	}
	return o
}

// archiveToPages converts every image of a CBZ into a one-page PDF inside the
// scratch directory. The returned files are in reading order.
func (m *Merger) archiveToPages(scratch *scratchDir, src string, chapter int) ([]string, error) {
	a, err := OpenArchive(src, m.cfg.ImageExtensions)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	chapterDir := scratch.Join(fmt.Sprintf("chap_%03d", chapter))
	if err := os.MkdirAll(chapterDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chapter directory: %w", err)
	}

	pages := make([]string, a.Len())
	err = a.EachPage(m.cfg.workers(), m.logger, func(p PageImage) error {
		base := filepath.Join(chapterDir, fmt.Sprintf("%03d_%03d", chapter, p.Index))
		if err := imaging.Save(p.Image, base+".jpg", imaging.JPEGQuality(m.cfg.JPEGQuality)); err != nil {
			return fmt.Errorf("failed to encode page %s: %w", p.Name, err)
		}
		if err := api.ImportImagesFile([]string{base + ".jpg"}, base+".pdf", nil, newPDFConfig()); err != nil {
			return fmt.Errorf("failed to convert page %s: %w", p.Name, err)
		}
		pages[p.Index-1] = base + ".pdf"
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(pages))
	for _, p := range pages {
		if p != "" {
			files = append(files, p)
		}
	}
	return files, nil
}

// countValidPages validates a chapter PDF and returns its page count.
func countValidPages(src string) (int, error) {
	if err := api.ValidateFile(src, newPDFConfig()); err != nil {
		return 0, err
	}
	pages, err := api.PageCountFile(src)
	if err != nil {
		return 0, err
	}
	if pages < 1 {
		return 0, errors.New("document has no pages")
	}
	return pages, nil
}

// writeStream concatenates the pages of every file in stream into outPath.
func writeStream(stream []string, outPath string) error {
	if len(stream) == 1 {
		return util.CopyFile(stream[0], outPath)
	}
	return api.MergeCreateFile(stream, outPath, false, newPDFConfig())
}

// newPDFConfig returns a fresh pdfcpu configuration. pdfcpu records the
// running command on the configuration, so calls never share one.
func newPDFConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
