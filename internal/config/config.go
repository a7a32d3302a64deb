package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/dbfc/internal/filelock"
	"github.com/harrison/dbfc/internal/rules"
	"gopkg.in/yaml.v3"
)

// HistoryConfig represents attempt history configuration
type HistoryConfig struct {
	// Enabled records every job attempt in an SQLite database
	Enabled bool `yaml:"enabled"`

	// DBPath overrides the database location. Empty means
	// <source_dir>/dbfc/history.db for each batch.
	DBPath string `yaml:"db_path"`
}

// Config represents dbfc configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written (empty = no file log)
	LogDir string `yaml:"log_dir"`

	// JobTimeout bounds each external command (0 = no limit)
	JobTimeout time.Duration `yaml:"job_timeout"`

	// History contains attempt history configuration
	History HistoryConfig `yaml:"history"`

	// Rules extends or overrides the built-in rule table for new batches
	Rules map[string]string `yaml:"rules"`

	// ExcludeDirs lists directory names init never descends into (e.g. .git)
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// SkipHidden makes init ignore directories whose name starts with "."
	SkipHidden bool `yaml:"skip_hidden"`
}

// yamlConfig mirrors Config with durations as strings for parsing and saving
type yamlConfig struct {
	LogLevel    string            `yaml:"log_level,omitempty"`
	LogDir      string            `yaml:"log_dir,omitempty"`
	JobTimeout  string            `yaml:"job_timeout,omitempty"`
	History     HistoryConfig     `yaml:"history"`
	Rules       map[string]string `yaml:"rules,omitempty"`
	ExcludeDirs []string          `yaml:"exclude_dirs,omitempty"`
	SkipHidden  bool              `yaml:"skip_hidden,omitempty"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		LogDir:     filepath.Join(DirName, "logs"),
		JobTimeout: 0,
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "",
		},
		Rules: map[string]string{},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.JobTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.JobTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid job_timeout format %q: %w", yamlCfg.JobTimeout, err)
		}
		cfg.JobTimeout = timeout
	}
	for ext, tmpl := range yamlCfg.Rules {
		cfg.Rules[ext] = tmpl
	}
	cfg.ExcludeDirs = yamlCfg.ExcludeDirs
	cfg.SkipHidden = yamlCfg.SkipHidden

	// Only fields present in the history section override defaults, so
	// "history: {db_path: x}" keeps history enabled.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, exists := rawMap["history"]; exists && section != nil {
			historyMap, _ := section.(map[string]interface{})
			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
		}
	}

	return cfg, nil
}

// Save writes the configuration to path as YAML under a file lock.
func (c *Config) Save(path string) error {
	doc := yamlConfig{
		LogLevel:    c.LogLevel,
		LogDir:      c.LogDir,
		History:     c.History,
		Rules:       c.Rules,
		ExcludeDirs: c.ExcludeDirs,
		SkipHidden:  c.SkipHidden,
	}
	if c.JobTimeout > 0 {
		doc.JobTimeout = c.JobTimeout.String()
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AddRule validates and stores a rule for new batches.
func (c *Config) AddRule(ext, template string) error {
	if c.Rules == nil {
		c.Rules = map[string]string{}
	}
	return rules.Table(c.Rules).Set(ext, template)
}

// RuleTable returns the built-in rules overlaid with configured ones.
func (c *Config) RuleTable() rules.Table {
	return rules.Defaults().Merge(rules.Table(c.Rules))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, jobTimeout *time.Duration, historyEnabled *bool) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if jobTimeout != nil {
		c.JobTimeout = *jobTimeout
	}
	if historyEnabled != nil {
		c.History.Enabled = *historyEnabled
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// JobTimeout can be 0 (no timeout) or positive, negative is invalid
	if c.JobTimeout < 0 {
		return fmt.Errorf("job_timeout must be >= 0, got %v", c.JobTimeout)
	}

	for _, name := range c.ExcludeDirs {
		if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
			return fmt.Errorf("exclude_dirs: %q must be a single directory name", name)
		}
	}

	for ext, tmpl := range c.Rules {
		if err := rules.Table(map[string]string{}).Set(ext, tmpl); err != nil {
			return fmt.Errorf("rules: %w", err)
		}
	}

	return nil
}
