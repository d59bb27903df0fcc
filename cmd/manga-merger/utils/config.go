package utils

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"manga-merger/internal/merge"
)

// AppConfig holds the process configuration read from the environment.
// User-editable paths live in the settings file named by ConfigFile.
type AppConfig struct {
	ConfigFile       string        `env:"MANGA_MERGER_CONFIG" envDefault:"config.json"`
	DataDir          string        `env:"MANGA_MERGER_DATA_DIR" envDefault:"./data"`
	TempDir          string        `env:"MANGA_MERGER_TEMP_DIR"`
	LogFile          string        `env:"LOG_FILE" envDefault:"log.txt"`
	Port             string        `env:"PORT"` // overrides the port from the settings file
	SessionSecret    string        `env:"SESSION_SECRET"`
	Parallelism      int           `env:"PARALLELISM" envDefault:"2"`
	JPEGQuality      int           `env:"JPEG_QUALITY" envDefault:"92"`
	ProcessRetention time.Duration `env:"PROCESS_RETENTION" envDefault:"720h"`
}

// LoadAppConfig parses the environment into an AppConfig.
func LoadAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return nil, fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", cfg.JPEGQuality)
	}
	if cfg.Parallelism < 0 {
		return nil, fmt.Errorf("PARALLELISM must not be negative, got %d", cfg.Parallelism)
	}
	return cfg, nil
}

// ProcessesFile is where the merge job log is kept.
func (c *AppConfig) ProcessesFile() string {
	return filepath.Join(c.DataDir, "processes.json")
}

// MergeConfig builds the engine configuration.
func (c *AppConfig) MergeConfig() *merge.Config {
	mc := merge.DefaultConfig()
	mc.TempDir = c.TempDir
	mc.Parallelism = c.Parallelism
	mc.JPEGQuality = c.JPEGQuality
	return mc
}
