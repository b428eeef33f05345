package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"caswitch/config/storage"
	"caswitch/internal/logger"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
)

const (
	// OptionsFile is the optional options file inside the base directory.
	OptionsFile = "caswitch.toml"

	EnvHome          = "CASWITCH_HOME"
	EnvLogLevel      = "CASWITCH_LOG_LEVEL"
	EnvLogFormat     = "CASWITCH_LOG_FORMAT"
	EnvBackup        = "CASWITCH_BACKUP"
	EnvBackupMaxSize = "CASWITCH_BACKUP_MAX_SIZE"
	EnvCodexHome     = "CODEX_HOME"

	DefaultTheme           = "tokyonight"
	DefaultMaxSnapshotSize = "10MB"
)

// Options are the tool's own settings, as opposed to the managed documents.
type Options struct {
	Logging  logger.Config   `toml:"logging"`
	Backup   BackupOptions   `toml:"backup"`
	OpenCode OpenCodeOptions `toml:"opencode"`
	Paths    PathOptions     `toml:"paths"`
}

// BackupOptions controls pre-write backups of sync targets and snapshots
type BackupOptions struct {
	// Enabled turns on a rotating backup of every target before it is rewritten.
	// Default: true
	Enabled         *bool  `toml:"enabled"`
	Retention       int    `toml:"retention"`
	MaxSnapshotSize string `toml:"max_snapshot_size"`
	maxSnapshotSize int64
}

// IsEnabled reports whether pre-write backups are on
func (c *BackupOptions) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// MaxSnapshotSizeBytes returns the parsed max_snapshot_size
func (c *BackupOptions) MaxSnapshotSizeBytes() int64 {
	return c.maxSnapshotSize
}

// Finalize applies defaults, loads environment overrides, and validates the backup options.
func (c *BackupOptions) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge applies values from the overlay that differ from zero values.
func (c *BackupOptions) Merge(overlay *BackupOptions) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.Retention != 0 {
		c.Retention = overlay.Retention
	}
	if overlay.MaxSnapshotSize != "" {
		c.MaxSnapshotSize = overlay.MaxSnapshotSize
	}
}

func (c *BackupOptions) loadDefaults() {
	if c.Retention == 0 {
		c.Retention = storage.DefaultBackupRetention
	}
	if c.MaxSnapshotSize == "" {
		c.MaxSnapshotSize = DefaultMaxSnapshotSize
	}
}

func (c *BackupOptions) loadEnv() error {
	if v := os.Getenv(EnvBackup); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBackup, err)
		}
		c.Enabled = &enabled
	}
	if v := os.Getenv(EnvBackupMaxSize); v != "" {
		c.MaxSnapshotSize = v
	}
	return nil
}

func (c *BackupOptions) validate() error {
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	size, err := units.FromHumanSize(c.MaxSnapshotSize)
	if err != nil {
		return fmt.Errorf("invalid max_snapshot_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_snapshot_size must be positive")
	}
	c.maxSnapshotSize = size
	return nil
}

// OpenCodeOptions customizes the generated opencode.json scaffold
type OpenCodeOptions struct {
	Theme string `toml:"theme"`
}

// PathOptions override where the managed tools keep their files. Empty
// values use each tool's default location; "~/" is expanded.
type PathOptions struct {
	ClaudeDir   string `toml:"claude_dir"`
	CodexDir    string `toml:"codex_dir"`
	GeminiDir   string `toml:"gemini_dir"`
	OpenCodeDir string `toml:"opencode_dir"`
}

// Merge applies values from the overlay that differ from zero values.
func (c *PathOptions) Merge(overlay *PathOptions) {
	if overlay.ClaudeDir != "" {
		c.ClaudeDir = overlay.ClaudeDir
	}
	if overlay.CodexDir != "" {
		c.CodexDir = overlay.CodexDir
	}
	if overlay.GeminiDir != "" {
		c.GeminiDir = overlay.GeminiDir
	}
	if overlay.OpenCodeDir != "" {
		c.OpenCodeDir = overlay.OpenCodeDir
	}
}

// DefaultOptions returns finalized options with no file and no environment applied
func DefaultOptions() *Options {
	opts := &Options{
		Logging: logger.Config{Level: logger.LevelWarn, Format: logger.FormatText},
	}
	opts.Backup.loadDefaults()
	_ = opts.Backup.validate()
	opts.OpenCode.Theme = DefaultTheme
	return opts
}

// LoadOptions layers <baseDir>/caswitch.toml, when present, over the
// defaults and finalizes the result.
func LoadOptions(baseDir string) (*Options, error) {
	opts := DefaultOptions()

	path := filepath.Join(baseDir, OptionsFile)
	data, ok, err := storage.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ok {
		var file Options
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		opts.Merge(&file)
	}

	if err := opts.Finalize(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Finalize applies defaults, loads environment overrides, and validates the options.
func (o *Options) Finalize() error {
	if o.OpenCode.Theme == "" {
		o.OpenCode.Theme = DefaultTheme
	}
	if err := o.Logging.Finalize(&logger.Env{Level: EnvLogLevel, Format: EnvLogFormat}); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := o.Backup.Finalize(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// Merge applies values from the overlay that differ from zero values.
func (o *Options) Merge(overlay *Options) {
	o.Logging.Merge(&overlay.Logging)
	o.Backup.Merge(&overlay.Backup)
	if overlay.OpenCode.Theme != "" {
		o.OpenCode.Theme = overlay.OpenCode.Theme
	}
	o.Paths.Merge(&overlay.Paths)
}
