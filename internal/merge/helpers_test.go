package merge_test

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/require"

	"manga-merger/internal/merge"
)

// testConfig keeps scratch directories under a per-test root so tests can
// check that nothing is left behind.
func testConfig(t *testing.T) *merge.Config {
	t.Helper()
	cfg := merge.DefaultConfig()
	cfg.TempDir = filepath.Join(t.TempDir(), "scratch")
	cfg.Parallelism = 2
	return cfg
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// writeCBZ creates an archive whose members are small PNGs, except names
// ending in ".txt", which get text content, and directories ending in "/".
func writeCBZ(t *testing.T, path string, members ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for i, name := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		switch {
		case strings.HasSuffix(name, "/"):
			continue
		case filepath.Ext(name) == ".txt":
			_, err = w.Write([]byte("not an image"))
		default:
			_, err = w.Write(pngBytes(t, color.NRGBA{R: uint8(40 * i), G: 80, B: 120, A: 255}))
		}
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, "page")
	}
	require.NoError(t, pdf.OutputFileAndClose(path))
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	return n
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// requireNoScratch fails if any scratch directory survived the merge.
func requireNoScratch(t *testing.T, cfg *merge.Config) {
	t.Helper()
	entries, err := os.ReadDir(cfg.TempDir)
	if os.IsNotExist(err) {
		return
	}
	require.NoError(t, err)
	require.Empty(t, entries, "scratch directories left behind")
}
