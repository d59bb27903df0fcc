package merge

import (
	"runtime"
	"time"

	"manga-merger/internal/util"
)

// Config contains options for merging
type Config struct {
	TempDir         string   // Parent of per-merge scratch directories ("" = os.TempDir())
	ImageExtensions []string // Archive members and bare files treated as pages

	// Image table of contents
	CanvasWidth  int
	CanvasHeight int
	CanvasMargin int

	// PDF table of contents, in points
	TitleFontSize float64
	EntryFontSize float64
	LineHeight    float64

	JPEGQuality int       // Quality of CBZ pages re-encoded for PDF output
	Parallelism int       // Concurrent image conversions per chapter (0 = use NumCPU)
	ArchiveTime time.Time // Modification time stamped on every CBZ entry
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		ImageExtensions: append([]string(nil), util.ImageExtensions...),
		CanvasWidth:     900,
		CanvasHeight:    1300,
		CanvasMargin:    40,
		TitleFontSize:   16,
		EntryFontSize:   12,
		LineHeight:      18,
		JPEGQuality:     92,
		Parallelism:     0,
		ArchiveTime:     time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *Config) workers() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.NumCPU()
}
