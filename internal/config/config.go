package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

const appName = "sentigraph"

// Scorer names
const (
	ScorerVader     = "vader"
	ScorerAnthropic = "anthropic"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Archives ArchivesConfig `toml:"archives"`
	Analysis AnalysisConfig `toml:"analysis"`
	Output   OutputConfig   `toml:"output"`
	Schedule ScheduleConfig `toml:"schedule"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ArchivesConfig struct {
	Dir     string `toml:"dir"`
	Pattern string `toml:"pattern"`
}

type AnalysisConfig struct {
	ExcludeNeutral bool   `toml:"exclude_neutral"`
	Scorer         string `toml:"scorer"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BatchSize      int    `toml:"batch_size"`
}

type OutputConfig struct {
	Dir string `toml:"dir"`
	// GraphDir is relative to Dir unless absolute
	GraphDir string `toml:"graph_dir"`
	// Annotations is an optional date-keyed notes file
	Annotations string `toml:"annotations"`
	// DBPath enables run history when set
	DBPath string `toml:"db_path"`
	HTML   bool   `toml:"html"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
	// Timeout bounds one scheduled run, e.g. "30m"
	Timeout string `toml:"timeout"`
}

// JobTimeout parses Timeout. An empty value means the scheduler default.
func (s ScheduleConfig) JobTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule.timeout %q: %w", s.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("schedule.timeout must be positive")
	}
	return d, nil
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Archives: ArchivesConfig{
			Dir:     ".",
			Pattern: `^\(RAW\).*\.json$`,
		},
		Analysis: AnalysisConfig{
			ExcludeNeutral: true,
			Scorer:         ScorerVader,
			Model:          "claude-sonnet-4-20250514",
			BatchSize:      50,
		},
		Output: OutputConfig{
			Dir:         "out",
			GraphDir:    "GEXF",
			Annotations: "Dates.txt",
			HTML:        true,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */6 * * *",
			Timezone: "UTC",
			Timeout:  "30m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Analysis.Scorer {
	case ScorerVader, ScorerAnthropic:
	default:
		return fmt.Errorf("unknown analysis.scorer %q", c.Analysis.Scorer)
	}
	if c.Analysis.Scorer == ScorerAnthropic && c.Analysis.APIKey == "" {
		return fmt.Errorf("analysis.api_key is required for scorer %q", ScorerAnthropic)
	}
	if c.Analysis.BatchSize < 0 {
		return fmt.Errorf("analysis.batch_size must not be negative")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule.cron %q: %w", c.Schedule.Cron, err)
		}
	}
	if _, err := c.Schedule.JobTimeout(); err != nil {
		return err
	}
	return nil
}

// GraphPath returns the directory graph files are written to.
func (c *Config) GraphPath() string {
	if filepath.IsAbs(c.Output.GraphDir) {
		return c.Output.GraphDir
	}
	return filepath.Join(c.Output.Dir, c.Output.GraphDir)
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path. Keys missing from the file keep their
// default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
