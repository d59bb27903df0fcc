package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"manga-merger/internal/util"
)

// NewSimpleLogger creates a logger that writes through LogMessage
func NewSimpleLogger(processID string) *util.SimpleLogger {
	return util.NewSimpleLogger(processID, LogMessage)
}

// LogMessage logs a message to stdout and, once SetupLogFile ran, to the log file
func LogMessage(level, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	log.Printf("[%s] [%s] %s", timestamp, level, message)
}

// SetupLogFile tees the standard logger into path. An empty path keeps
// logging on stdout only.
func SetupLogFile(path string) (io.Closer, error) {
	if path == "" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %v", path, err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}
