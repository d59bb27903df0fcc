package merge_test

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manga-merger/internal/merge"
	"manga-merger/internal/util"
)

func TestCombineCBZ_MergesInChapterOrder(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Vinland")
	require.NoError(t, os.MkdirAll(source, 0755))
	writeCBZ(t, filepath.Join(source, "Ch 10.cbz"), "p3.png", "p1.png", "p2.jpg")
	writeCBZ(t, filepath.Join(source, "Ch 2.cbz"), "p3.png", "p1.png", "p2.png")
	exportRoot := t.TempDir()

	m := merge.New(cfg, &util.NoopLogger{})
	res, err := m.CombineCBZ(source, []string{"Ch 10.cbz", "Ch 2.cbz"}, exportRoot, "Vol 3")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(exportRoot, "Vinland", "Vinland_Vol 3.cbz"), res.OutputPath)
	assert.Equal(t, 6, res.Count)
	assert.Equal(t, []string{
		"000_000.png",
		"001_001.png", "001_002.png", "001_003.png",
		"002_001.png", "002_002.jpg", "002_003.png",
	}, zipNames(t, res.OutputPath))

	requireNoScratch(t, cfg)
}

func TestCombineCBZ_EntriesAreSorted(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Sorted")
	require.NoError(t, os.MkdirAll(source, 0755))
	writeCBZ(t, filepath.Join(source, "1.cbz"), "a.png", "b.png")
	require.NoError(t, os.WriteFile(filepath.Join(source, "2 bonus.PNG"), pngBytes(t, color.White), 0644))

	m := merge.New(cfg, nil)
	res, err := m.CombineCBZ(source, []string{"2 bonus.PNG", "1.cbz"}, t.TempDir(), "v")
	require.NoError(t, err)

	names := zipNames(t, res.OutputPath)
	assert.Equal(t, sortedCopy(names), names)
	assert.Contains(t, names, "002_000.png", "bare images get index 000")
	assert.Equal(t, 3, res.Count)
}

func TestCombineCBZ_SkipsCorruptArchive(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Corrupt")
	require.NoError(t, os.MkdirAll(source, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "Ch 1.cbz"), []byte("not a zip"), 0644))
	writeCBZ(t, filepath.Join(source, "Ch 2.cbz"), "1.png", "2.png")
	require.NoError(t, os.WriteFile(filepath.Join(source, "Ch 3.pdf"), []byte("%PDF-1.4"), 0644))

	m := merge.New(cfg, &util.NoopLogger{})
	res, err := m.CombineCBZ(source, []string{"Ch 1.cbz", "Ch 2.cbz", "Ch 3.pdf", "Ch 4.cbz"}, t.TempDir(), "v1")
	require.NoError(t, err)

	skipped := res.Skipped()
	require.Len(t, skipped, 3)
	assert.ErrorIs(t, skipped[0], merge.ErrArchive)
	assert.Equal(t, "Ch 1.cbz", skipped[0].Chapter)
	assert.ErrorIs(t, skipped[1], merge.ErrUnsupportedFile)
	assert.ErrorIs(t, skipped[2], merge.ErrMissingFile)

	assert.Equal(t, []string{"000_000.png", "002_001.png", "002_002.png"}, zipNames(t, res.OutputPath))
	requireNoScratch(t, cfg)
}

func TestCombineCBZ_EmptySelectionIsTOCOnly(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Nothing")
	require.NoError(t, os.MkdirAll(source, 0755))

	m := merge.New(cfg, nil)
	res, err := m.CombineCBZ(source, []string{}, t.TempDir(), "v0")
	require.NoError(t, err)
	assert.Equal(t, []string{"000_000.png"}, zipNames(t, res.OutputPath))
	assert.Empty(t, res.Chapters)
}

func TestCombineCBZ_IsDeterministic(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Same")
	require.NoError(t, os.MkdirAll(source, 0755))
	writeCBZ(t, filepath.Join(source, "Ch 1.cbz"), "1.png", "2.png")
	writeCBZ(t, filepath.Join(source, "Ch 2.cbz"), "1.png")
	selected := []string{"Ch 2.cbz", "Ch 1.cbz"}

	m := merge.New(cfg, nil)
	first, err := m.CombineCBZ(source, selected, t.TempDir(), "v1")
	require.NoError(t, err)
	second, err := m.CombineCBZ(source, selected, t.TempDir(), "v1")
	require.NoError(t, err)

	a, err := os.ReadFile(first.OutputPath)
	require.NoError(t, err)
	b, err := os.ReadFile(second.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCombineCBZ_OutputFailureIsFatal(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "Fatal")
	require.NoError(t, os.MkdirAll(source, 0755))
	writeCBZ(t, filepath.Join(source, "Ch 1.cbz"), "1.png")

	exportRoot := t.TempDir()
	// A directory in place of the volume makes the final rename fail.
	out := merge.OutputPath(source, exportRoot, "v1", merge.KindCBZ)
	require.NoError(t, os.MkdirAll(filepath.Join(out, "blocker"), 0755))

	m := merge.New(cfg, nil)
	_, err := m.CombineCBZ(source, []string{"Ch 1.cbz"}, exportRoot, "v1")
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrOutputWrite)

	var outErr *merge.OutputError
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, "rename", outErr.Op)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary volume must be removed")
	requireNoScratch(t, cfg)
}
