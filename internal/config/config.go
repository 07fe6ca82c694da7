package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/harrison/graft/internal/logger"
	"github.com/harrison/graft/internal/resolver"
)

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled enables recording runs to the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`

	// KeepRuns is the number of most recent runs to retain (0 = unlimited)
	KeepRuns int `yaml:"keep_runs"`
}

// Config represents graft configuration options
type Config struct {
	// OutDir is the directory expanded files are written to
	OutDir string `yaml:"out_dir"`

	// SourceDir is the root of the source tree to scan
	SourceDir string `yaml:"source_dir"`

	// Pattern is the include directive regular expression; its first
	// capture group is the referenced path
	Pattern string `yaml:"pattern"`

	// MaxDepth is the maximum number of substitution passes per file
	MaxDepth int `yaml:"max_depth"`

	// Extensions restricts scanning to these file extensions (empty = all files)
	Extensions []string `yaml:"extensions"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		OutDir:     "", // Required, no default
		SourceDir:  ".",
		Pattern:    resolver.DefaultPattern,
		MaxDepth:   resolver.DefaultMaxDepth,
		Extensions: nil, // All files
		LogLevel:   "info",
		LogDir:     ".graft/logs",
		History: HistoryConfig{
			Enabled:  true,
			DBPath:   ".graft/history.db",
			KeepRuns: 200,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	// Use a temporary struct so an explicit max_depth of 0 is distinguishable
	// from the key being absent
	type yamlConfig struct {
		OutDir     string        `yaml:"out_dir"`
		SourceDir  string        `yaml:"source_dir"`
		Pattern    string        `yaml:"pattern"`
		MaxDepth   *int          `yaml:"max_depth"`
		Extensions []string      `yaml:"extensions"`
		LogLevel   string        `yaml:"log_level"`
		LogDir     string        `yaml:"log_dir"`
		History    HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply set values from file (merging with defaults)
	if yamlCfg.OutDir != "" {
		cfg.OutDir = yamlCfg.OutDir
	}
	if yamlCfg.SourceDir != "" {
		cfg.SourceDir = yamlCfg.SourceDir
	}
	if yamlCfg.Pattern != "" {
		cfg.Pattern = yamlCfg.Pattern
	}
	// MaxDepth of 0 means expansion is disabled, so presence matters
	if yamlCfg.MaxDepth != nil {
		cfg.MaxDepth = *yamlCfg.MaxDepth
	}
	if len(yamlCfg.Extensions) > 0 {
		cfg.Extensions = yamlCfg.Extensions
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}

	// Merge History config - need to check if the section was provided at all
	// We create a temporary unmarshal to detect if history section exists
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			// History section exists in YAML, merge it
			history := yamlCfg.History

			// For nested struct, we need to check which fields were actually set
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = history.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				// Explicitly set db_path, even if empty string
				cfg.History.DBPath = history.DBPath
			}
			if _, exists := historyMap["keep_runs"]; exists {
				cfg.History.KeepRuns = history.KeepRuns
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .graft/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".graft", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(outDir *string, sourceDir *string, pattern *string, maxDepth *int, extensions *[]string, logDir *string, noHistory *bool) {
	if outDir != nil {
		c.OutDir = *outDir
	}
	if sourceDir != nil {
		c.SourceDir = *sourceDir
	}
	if pattern != nil {
		c.Pattern = *pattern
	}
	if maxDepth != nil {
		c.MaxDepth = *maxDepth
	}
	if extensions != nil {
		c.Extensions = *extensions
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if noHistory != nil && *noHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	// out_dir has no default, it must come from the config file or a flag
	if c.OutDir == "" {
		return fmt.Errorf("out_dir is required; set it in .graft/config.yaml or pass --out")
	}

	// Validate source_dir
	if c.SourceDir == "" {
		return fmt.Errorf("source_dir cannot be empty")
	}

	// Validate max_depth
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}

	// Validate log_level
	if !logger.ValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// The pattern must compile; how many groups it captures is checked
	// against each match during expansion, not here
	if _, err := regexp.Compile(c.Pattern); err != nil {
		return fmt.Errorf("pattern does not compile: %w", err)
	}

	// Validate history configuration
	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path cannot be empty when history is enabled")
		}
		if c.History.KeepRuns < 0 {
			return fmt.Errorf("history.keep_runs must be >= 0, got %d", c.History.KeepRuns)
		}
	}

	return nil
}
