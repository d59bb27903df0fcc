package merge

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const tocTitle = "Chapters Included:"

// Layout of the PDF table of contents, measured in points from the bottom of
// a US Letter page.
const (
	tocTitleTop   = 730.0
	tocEntriesTop = 700.0
	tocBottom     = 72.0
	tocTitleLeft  = 72.0
	tocEntryLeft  = 100.0
)

// tocLeading is the extra spacing between lines on the image table of contents.
const tocLeading = 4

// TOCLines returns the text of the table of contents, one entry per line.
func TOCLines(chapters []string) []string {
	lines := make([]string, 0, len(chapters)+1)
	lines = append(lines, tocTitle)
	for _, ch := range chapters {
		lines = append(lines, "- "+ch)
	}
	return lines
}

// tocPosition places one chapter line of the PDF table of contents.
type tocPosition struct {
	Page int     // 0-based page index
	Y    float64 // baseline, measured from the bottom of the page
}

// layoutTOC assigns every chapter line a page and height. Lines that would fall
// below the bottom margin move to the top of a new page.
func layoutTOC(n int, cfg *Config) []tocPosition {
	positions := make([]tocPosition, n)
	page, y := 0, tocEntriesTop
	for i := range positions {
		if y < tocBottom {
			page++
			y = tocTitleTop
		}
		positions[i] = tocPosition{Page: page, Y: y}
		y -= cfg.LineHeight
	}
	return positions
}

// WriteTOCPDF writes the table of contents as a standalone PDF. Long chapter
// lists continue on further pages.
func WriteTOCPDF(outputPath string, chapters []string, cfg *Config) error {
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(cfg.ArchiveTime)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", cfg.TitleFontSize)
	pdf.Text(tocTitleLeft, pageHeight-tocTitleTop, tr(tocTitle))

	pdf.SetFont("Helvetica", "", cfg.EntryFontSize)
	page := 0
	for i, pos := range layoutTOC(len(chapters), cfg) {
		if pos.Page != page {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", cfg.EntryFontSize)
			page = pos.Page
		}
		pdf.Text(tocEntryLeft, pageHeight-pos.Y, tr("- "+chapters[i]))
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to write table of contents: %w", err)
	}
	return nil
}

// TOCPageCount returns how many pages WriteTOCPDF produces for n chapters.
func TOCPageCount(n int, cfg *Config) int {
	positions := layoutTOC(n, cfg)
	if len(positions) == 0 {
		return 1
	}
	return positions[len(positions)-1].Page + 1
}

// RenderTOCImage draws the table of contents on a single white canvas. Text
// that does not fit is clipped.
func RenderTOCImage(chapters []string, cfg *Config) *image.NRGBA {
	canvas := imaging.New(cfg.CanvasWidth, cfg.CanvasHeight, color.White)

	face := basicfont.Face7x13
	metrics := face.Metrics()
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	left := fixed.I(cfg.CanvasMargin)
	y := fixed.I(cfg.CanvasMargin) + metrics.Ascent
	for _, line := range TOCLines(chapters) {
		d.Dot = fixed.Point26_6{X: left, Y: y}
		d.DrawString(line)
		y += metrics.Height + fixed.I(tocLeading)
	}
	return canvas
}

// WriteTOCImage renders the table of contents and saves it; the format follows
// the file extension.
func WriteTOCImage(outputPath string, chapters []string, cfg *Config) error {
	if err := imaging.Save(RenderTOCImage(chapters, cfg), outputPath); err != nil {
		return fmt.Errorf("failed to write table of contents image: %w", err)
	}
	return nil
}
