package util

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File extensions
var (
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	PDFExtensions   = []string{".pdf"}
	CBZExtensions   = []string{".cbz"}
)

// Logger interface for handling logs
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// SimpleLogger is a basic logger that outputs to stdout via a log function
type SimpleLogger struct {
	ProcessID string
	LogFunc   func(level, message string)
}

// NewSimpleLogger creates a new simple logger
func NewSimpleLogger(processID string, logFunc func(level, message string)) *SimpleLogger {
	return &SimpleLogger{
		ProcessID: processID,
		LogFunc:   logFunc,
	}
}

// Info logs an informational message
func (l *SimpleLogger) Info(msg string) {
	l.log("INFO", msg)
}

// Warning logs a warning message
func (l *SimpleLogger) Warning(msg string) {
	l.log("WARNING", msg)
}

// Error logs an error message
func (l *SimpleLogger) Error(msg string) {
	l.log("ERROR", msg)
}

func (l *SimpleLogger) log(level, msg string) {
	if l.LogFunc == nil {
		return
	}
	if l.ProcessID != "" {
		msg = "[" + l.ProcessID + "] " + msg
	}
	l.LogFunc(level, msg)
}

// NoopLogger is a logger that does nothing
type NoopLogger struct{}

func (l *NoopLogger) Info(msg string)    {}
func (l *NoopLogger) Warning(msg string) {}
func (l *NoopLogger) Error(msg string)   {}

// HasExtension reports whether filename ends with one of exts, ignoring case.
func HasExtension(filename string, exts []string) bool {
	lowerName := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lowerName, ext) {
			return true
		}
	}
	return false
}

// IsImageFile checks if a filename has an image extension
func IsImageFile(filename string) bool {
	return HasExtension(filename, ImageExtensions)
}

// IsPDFFile checks if a filename has a PDF extension
func IsPDFFile(filename string) bool {
	return HasExtension(filename, PDFExtensions)
}

// IsCBZFile checks if a filename has a CBZ extension
func IsCBZFile(filename string) bool {
	return HasExtension(filename, CBZExtensions)
}

// IsChapterFile checks if a filename is a mergeable chapter (PDF or CBZ).
func IsChapterFile(filename string) bool {
	return IsPDFFile(filename) || IsCBZFile(filename)
}

// SanitizeForFilesystem sanitizes a string for use in filenames
func SanitizeForFilesystem(title string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := title
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.TrimSpace(result)
}

// CopyFile copies a file from src to dst
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// DirExists checks if a directory exists
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// IsHidden reports whether a file or directory name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}
