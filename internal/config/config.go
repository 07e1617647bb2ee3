// Package config loads and stores the dupefiles configuration snapshot.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/fs"
	"github.com/substantialcattle5/dupefiles/util"
)

var (
	// ErrInvalidConfig wraps every validation failure
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrMalformedConfig is returned alongside defaults when the snapshot cannot be decoded
	ErrMalformedConfig = errors.New("malformed configuration")
)

// Config is the persisted configuration snapshot
type Config struct {
	OutputMode     string `yaml:"output_mode"`
	ExportFormat   string `yaml:"export_format"`
	LogFilename    string `yaml:"log_filename"`
	ExportFilename string `yaml:"export_filename"`
	// PersistentMode keeps index and group snapshots off disk
	PersistentMode bool   `yaml:"persistent_mode"`
	HashAlgorithm  string `yaml:"hash_algorithm"`
	HashWorkers    int    `yaml:"hash_workers"`
	IOLimit        string `yaml:"io_limit"`
	Compression    string `yaml:"compression"`
	MinSize        string `yaml:"min_size"`
}

// Default returns the configuration used when no snapshot exists
func Default() Config {
	return Config{
		OutputMode:    constants.OutputModeConsole,
		ExportFormat:  constants.ExportFormatStructured,
		LogFilename:   constants.DefaultLogFileName,
		HashAlgorithm: constants.DefaultHashAlgorithm,
		HashWorkers:   constants.DefaultHashWorkers,
		Compression:   constants.CompressionTypeNone,
		MinSize:       "0",
	}
}

// Load reads the snapshot at path. A missing file yields the defaults with
// no error. A malformed file yields the defaults and an error wrapping
// ErrMalformedConfig, which callers report as a warning.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrMalformedConfig, path, err)
	}
	loaded.fillDefaults()
	return loaded, nil
}

// fillDefaults completes a partially written snapshot
func (c *Config) fillDefaults() {
	def := Default()
	if c.OutputMode == "" {
		c.OutputMode = def.OutputMode
	}
	if c.ExportFormat == "" {
		c.ExportFormat = def.ExportFormat
	}
	if c.LogFilename == "" {
		c.LogFilename = def.LogFilename
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = def.HashAlgorithm
	}
	if c.HashWorkers == 0 {
		c.HashWorkers = def.HashWorkers
	}
	if c.Compression == "" {
		c.Compression = def.Compression
	}
	if c.MinSize == "" {
		c.MinSize = def.MinSize
	}
}

// Save writes the snapshot to path
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fs.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// check validates one setting and knows how to restore its default
type check struct {
	valid func(Config) bool
	issue func(Config) string
	reset func(c *Config, def Config)
}

func oneOf(value string, allowed ...string) bool {
	return slices.Contains(allowed, value)
}

var checks = []check{
	{
		valid: func(c Config) bool {
			return oneOf(c.OutputMode, constants.OutputModeConsole, constants.OutputModeLogFile, constants.OutputModeSilent)
		},
		issue: func(c Config) string {
			return fmt.Sprintf("output mode %q (expected console, logfile or silent)", c.OutputMode)
		},
		reset: func(c *Config, def Config) { c.OutputMode = def.OutputMode },
	},
	{
		valid: func(c Config) bool { return c.OutputMode != constants.OutputModeLogFile || c.LogFilename != "" },
		issue: func(Config) string { return "logfile output needs a log filename" },
		reset: func(c *Config, def Config) { c.LogFilename = def.LogFilename },
	},
	{
		valid: func(c Config) bool {
			return oneOf(c.ExportFormat, constants.ExportFormatStructured, constants.ExportFormatTabular)
		},
		issue: func(c Config) string {
			return fmt.Sprintf("export format %q (expected structured or tabular)", c.ExportFormat)
		},
		reset: func(c *Config, def Config) { c.ExportFormat = def.ExportFormat },
	},
	{
		valid: func(c Config) bool {
			return oneOf(c.HashAlgorithm, constants.HashAlgorithmSHA256, constants.HashAlgorithmSHA512, constants.HashAlgorithmSHA1,
				constants.HashAlgorithmMD5, constants.HashAlgorithmBLAKE2B, constants.HashAlgorithmBLAKE3)
		},
		issue: func(c Config) string { return fmt.Sprintf("hash algorithm %q", c.HashAlgorithm) },
		reset: func(c *Config, def Config) { c.HashAlgorithm = def.HashAlgorithm },
	},
	{
		valid: func(c Config) bool {
			return oneOf(c.Compression, constants.CompressionTypeNone, constants.CompressionTypeGzip, constants.CompressionTypeZstd)
		},
		issue: func(c Config) string {
			return fmt.Sprintf("compression %q (expected none, gzip or zstd)", c.Compression)
		},
		reset: func(c *Config, def Config) { c.Compression = def.Compression },
	},
	{
		valid: func(c Config) bool { return c.HashWorkers >= 1 },
		issue: func(c Config) string { return fmt.Sprintf("hash workers must be at least 1, got %d", c.HashWorkers) },
		reset: func(c *Config, def Config) { c.HashWorkers = def.HashWorkers },
	},
	{
		valid: func(c Config) bool {
			if c.IOLimit == "" {
				return true
			}
			n, err := util.ParseSize(c.IOLimit)
			return err == nil && n > 0
		},
		issue: func(c Config) string { return fmt.Sprintf("io limit %q", c.IOLimit) },
		reset: func(c *Config, def Config) { c.IOLimit = def.IOLimit },
	},
	{
		valid: func(c Config) bool {
			_, err := c.MinSizeBytes()
			return err == nil
		},
		issue: func(c Config) string { return fmt.Sprintf("min size %q", c.MinSize) },
		reset: func(c *Config, def Config) { c.MinSize = def.MinSize },
	},
}

// Validate reports every invalid field
func (c Config) Validate() error {
	var errs []error
	for _, ch := range checks {
		if !ch.valid(c) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, ch.issue(c)))
		}
	}
	return errors.Join(errs...)
}

// Repair returns c with every invalid field set back to its default, along
// with the validation error describing what was replaced.
func (c Config) Repair() (Config, error) {
	err := c.Validate()
	if err == nil {
		return c, nil
	}

	def := Default()
	repaired := c
	for _, ch := range checks {
		if !ch.valid(repaired) {
			ch.reset(&repaired, def)
		}
	}
	return repaired, err
}

// MinSizeBytes parses MinSize
func (c Config) MinSizeBytes() (uint64, error) {
	if c.MinSize == "" {
		return 0, nil
	}
	n, err := util.ParseSize(c.MinSize)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %d", n)
	}
	return uint64(n), nil
}
