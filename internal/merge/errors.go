package merge

import (
	"errors"
	"fmt"
)

// Chapter-level failures. A chapter failing with one of these is skipped and
// the merge continues.
var (
	ErrArchive         = errors.New("archive unreadable")
	ErrMalformedPDF    = errors.New("malformed pdf")
	ErrMissingFile     = errors.New("file not found")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// ErrOutputWrite marks a failure that aborts the whole merge.
var ErrOutputWrite = errors.New("cannot write output")

// ChapterError records why a selected chapter contributed nothing.
type ChapterError struct {
	Chapter string
	Kind    error // one of the chapter-level sentinels
	Err     error // underlying cause, may be nil
}

func (e *ChapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Chapter, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Chapter, e.Kind, e.Err)
}

func (e *ChapterError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func chapterErr(chapter string, kind, err error) *ChapterError {
	return &ChapterError{Chapter: chapter, Kind: kind, Err: err}
}

// OutputError is returned when the volume file cannot be produced.
type OutputError struct {
	Path string
	Op   string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrOutputWrite, e.Op, e.Path, e.Err)
}

func (e *OutputError) Unwrap() []error {
	return []error{ErrOutputWrite, e.Err}
}

func outputErr(op, path string, err error) *OutputError {
	return &OutputError{Path: path, Op: op, Err: err}
}
