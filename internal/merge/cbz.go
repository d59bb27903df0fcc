package merge

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"manga-merger/internal/util"
)

// tocImageName sorts ahead of every chapter image.
const tocImageName = "000_000.png"

// CombineCBZ merges the selected chapters of sourceFolder into one CBZ volume.
// The returned error is non-nil only when the volume could not be written.
func (m *Merger) CombineCBZ(sourceFolder string, selected []string, exportRoot, volumeName string) (*Result, error) {
	out, err := prepareOutput(sourceFolder, exportRoot, volumeName, KindCBZ)
	if err != nil {
		m.logger.Error(fmt.Sprintf("combine_cbz error: %v", err))
		return nil, err
	}

	scratch, err := newScratchDir(m.cfg.TempDir, "manga-merge-cbz-")
	if err != nil {
		m.logger.Error(fmt.Sprintf("combine_cbz error: %v", err))
		return nil, outputErr("scratch", out, err)
	}
	defer m.releaseScratch(scratch)

	if err := WriteTOCImage(scratch.Join(tocImageName), selected, m.cfg); err != nil {
		m.logger.Error(fmt.Sprintf("combine_cbz error: %v", err))
		return nil, outputErr("toc", out, err)
	}

	result := &Result{
		OutputPath: out,
		Kind:       KindCBZ,
		Selected:   append([]string(nil), selected...),
		TOCPages:   1,
	}

	for i, name := range SortChapters(selected) {
		o := m.cbzChapter(scratch, sourceFolder, name, i+1)
		result.Chapters = append(result.Chapters, o)
		if o.Skipped() {
			m.logSkipped(o)
			continue
		}
		result.Count += o.Count
		m.logger.Info(fmt.Sprintf("%s: %d images added", name, o.Count))
	}

	if err := writeAtomic(out, func(tmpPath string) error {
		return m.packDir(scratch.Path(), tmpPath)
	}); err != nil {
		m.logger.Error(fmt.Sprintf("combine_cbz error: %v", err))
		return nil, err
	}

	m.logger.Info(fmt.Sprintf("CBZ created with %d images + TOC: %s", result.Count, out))
	return result, nil
}

// cbzChapter copies the images of one selected file into the scratch
// directory under their volume-wide names.
func (m *Merger) cbzChapter(scratch *scratchDir, sourceFolder, name string, index int) ChapterOutcome {
	o := ChapterOutcome{Index: index, Name: name, Kind: classify(name, m.cfg.ImageExtensions)}

	src, cerr := locate(sourceFolder, name)
	if cerr != nil {
		o.Err = cerr
		return o
	}

	switch o.Kind {
	case ChapterCBZ:
		files, err := m.copyArchiveImages(scratch, src, index)
		if err != nil {
			o.Err = chapterErr(name, ErrArchive, err)
			return o
		}
		o.Files, o.Count = files, len(files)
	case ChapterImage:
		dst := scratch.Join(fmt.Sprintf("%03d_000%s", index, strings.ToLower(filepath.Ext(name))))
		if err := util.CopyFile(src, dst); err != nil {
			os.Remove(dst)
			o.Err = chapterErr(name, ErrMissingFile, err)
			return o
		}
		o.Files, o.Count = []string{dst}, 1
	default:
		o.Err = chapterErr(name, ErrUnsupportedFile, nil)
	}
	return o
}

// copyArchiveImages writes the raw image members of a CBZ as
// "<chapter>_<image><ext>". If any member cannot be read the files already
// written for the chapter are removed.
func (m *Merger) copyArchiveImages(scratch *scratchDir, src string, chapter int) (files []string, err error) {
	a, err := OpenArchive(src, m.cfg.ImageExtensions)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	defer func() {
		if err != nil {
			for _, f := range files {
				os.Remove(f)
			}
			files = nil
		}
	}()

	for i := 0; i < a.Len(); i++ {
		data, err := a.ReadRaw(i)
		if err != nil {
			return files, err
		}
		dst := scratch.Join(fmt.Sprintf("%03d_%03d%s", chapter, i+1, a.Ext(i)))
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		files = append(files, dst)
	}
	return files, nil
}

// packDir zips the regular files of dir, sorted by name, into outputPath.
// Every entry carries the configured timestamp so equal inputs give equal bytes.
func (m *Merger) packDir(dir, outputPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer zipFile.Close()

	bufferedWriter := bufio.NewWriter(zipFile)
	zipWriter := zip.NewWriter(bufferedWriter)

	for _, name := range names {
		if err := m.addZipEntry(zipWriter, filepath.Join(dir, name), name); err != nil {
			zipWriter.Close()
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("error finalizing archive: %w", err)
	}
	if err := bufferedWriter.Flush(); err != nil {
		return fmt.Errorf("error flushing archive: %w", err)
	}
	if err := zipFile.Sync(); err != nil {
		return fmt.Errorf("error syncing archive: %w", err)
	}
	return zipFile.Close()
}

func (m *Merger) addZipEntry(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file %s: %w", path, err)
	}
	defer f.Close()

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: m.cfg.ArchiveTime,
	}
	header.SetMode(0644)

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("creating zip entry for %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing content for %s: %w", name, err)
	}
	return nil
}
