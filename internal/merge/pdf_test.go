package merge_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-merger/internal/merge"
	"manga-merger/internal/util"
)

func TestCombinePDF_SkipsMissingChapter(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Berserk")
	require.NoError(t, os.MkdirAll(source, 0755))
	writePDF(t, filepath.Join(source, "Ch 2.pdf"), 2)
	writePDF(t, filepath.Join(source, "Ch 10.pdf"), 3)
	exportRoot := t.TempDir()

	m := merge.New(cfg, &util.NoopLogger{})
	res, err := m.CombinePDF(source, []string{"Ch 10.pdf", "Ch 5.pdf", "Ch 2.pdf"}, exportRoot, "Vol 1")
	require.NoError(t, err)

	want := filepath.Join(exportRoot, "Berserk", "Berserk_Vol 1.pdf")
	assert.Equal(t, want, res.OutputPath)
	assert.Equal(t, 5, res.Count)
	assert.Equal(t, 1+5, pageCount(t, want))

	assert.Equal(t, []string{"Ch 2.pdf", "Ch 10.pdf"}, res.Included())
	require.Len(t, res.Skipped(), 1)
	assert.ErrorIs(t, res.Skipped()[0], merge.ErrMissingFile)
	assert.Equal(t, []string{"Ch 10.pdf", "Ch 5.pdf", "Ch 2.pdf"}, res.Selected)

	requireNoScratch(t, cfg)
}

func TestCombinePDF_ConvertsArchivePages(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Mixed")
	require.NoError(t, os.MkdirAll(source, 0755))
	writeCBZ(t, filepath.Join(source, "Ch 1.cbz"), "02.png", "01.png", "info.txt")
	writePDF(t, filepath.Join(source, "Ch 2.pdf"), 4)

	m := merge.New(cfg, &util.NoopLogger{})
	res, err := m.CombinePDF(source, []string{"Ch 2.pdf", "Ch 1.cbz"}, t.TempDir(), "Vol 1")
	require.NoError(t, err)

	require.Len(t, res.Chapters, 2)
	assert.Equal(t, merge.ChapterCBZ, res.Chapters[0].Kind)
	assert.Equal(t, 2, res.Chapters[0].Count)
	assert.Equal(t, merge.ChapterPDF, res.Chapters[1].Kind)
	assert.Equal(t, 4, res.Chapters[1].Count)
	assert.Equal(t, 1+2+4, pageCount(t, res.OutputPath))

	requireNoScratch(t, cfg)
}

func TestCombinePDF_SkipsBadChapters(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Broken")
	require.NoError(t, os.MkdirAll(source, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "Ch 1.pdf"), []byte("%PDF-1.4 nonsense"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "Ch 2.cbz"), []byte("nonsense"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(source, "Ch 3.epub"), []byte("nonsense"), 0644))
	writePDF(t, filepath.Join(source, "Ch 4.pdf"), 1)

	m := merge.New(cfg, &util.NoopLogger{})
	res, err := m.CombinePDF(source, []string{"Ch 1.pdf", "Ch 2.cbz", "Ch 3.epub", "Ch 4.pdf"}, t.TempDir(), "v1")
	require.NoError(t, err)

	skipped := res.Skipped()
	require.Len(t, skipped, 3)
	assert.ErrorIs(t, skipped[0], merge.ErrMalformedPDF)
	assert.ErrorIs(t, skipped[1], merge.ErrArchive)
	assert.ErrorIs(t, skipped[2], merge.ErrUnsupportedFile)
	assert.Equal(t, []string{"Ch 4.pdf"}, res.Included())
	assert.Equal(t, 2, pageCount(t, res.OutputPath))

	requireNoScratch(t, cfg)
}

func TestCombinePDF_EmptySelectionIsTOCOnly(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Empty")
	require.NoError(t, os.MkdirAll(source, 0755))

	m := merge.New(cfg, nil)
	res, err := m.CombinePDF(source, nil, t.TempDir(), "v0")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, 1, pageCount(t, res.OutputPath))

	requireNoScratch(t, cfg)
}

func TestCombinePDF_DuplicatesAreKept(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Dup")
	require.NoError(t, os.MkdirAll(source, 0755))
	writePDF(t, filepath.Join(source, "Ch 1.pdf"), 2)

	m := merge.New(cfg, nil)
	res, err := m.CombinePDF(source, []string{"Ch 1.pdf", "Ch 1.pdf"}, t.TempDir(), "v1")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Count)
	assert.Equal(t, 5, pageCount(t, res.OutputPath))
}

func TestCombinePDF_OverwritesExistingVolume(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Again")
	require.NoError(t, os.MkdirAll(source, 0755))
	writePDF(t, filepath.Join(source, "Ch 1.pdf"), 1)
	exportRoot := t.TempDir()

	out := merge.OutputPath(source, exportRoot, "v1", merge.KindPDF)
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0755))
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	m := merge.New(cfg, nil)
	first, err := m.CombinePDF(source, []string{"Ch 1.pdf"}, exportRoot, "v1")
	require.NoError(t, err)
	second, err := m.CombinePDF(source, []string{"Ch 1.pdf"}, exportRoot, "v1")
	require.NoError(t, err)

	assert.Equal(t, first.OutputPath, second.OutputPath)
	assert.Equal(t, 2, pageCount(t, out))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files next to the volume")
}

func TestCombinePDF_OutputFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Fatal")
	require.NoError(t, os.MkdirAll(source, 0755))
	writePDF(t, filepath.Join(source, "Ch 1.pdf"), 1)

	exportRoot := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(exportRoot, []byte("file"), 0644))

	m := merge.New(cfg, nil)
	res, err := m.CombinePDF(source, []string{"Ch 1.pdf"}, exportRoot, "v1")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, merge.ErrOutputWrite)

	requireNoScratch(t, cfg)
}

func TestCombinePDF_LongSelectionPaginatesTOC(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Long")
	require.NoError(t, os.MkdirAll(source, 0755))
	writePDF(t, filepath.Join(source, "Ch 1.pdf"), 3)

	selected := []string{"Ch 1.pdf"}
	for i := 2; i <= 40; i++ {
		selected = append(selected, fmt.Sprintf("Ch %d.pdf", i))
	}

	res, err := merge.New(cfg, nil).CombinePDF(source, selected, t.TempDir(), "v1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.TOCPages)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, res.TOCPages+res.Count, pageCount(t, res.OutputPath))
	assert.Len(t, res.Skipped(), 39)
}
