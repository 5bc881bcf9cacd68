package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the tool's state directory.
const FileName = "config.yaml"

// Config holds application configuration.
type Config struct {
	// CapsuleDir is where capsules are written, relative to the home directory
	// unless absolute.
	CapsuleDir string `yaml:"capsule_dir"`

	// AppName selects the Neovim app directories to capture and prefixes
	// capsule names (<app>_backup_<stamp>.zip).
	AppName string `yaml:"app_name"`

	// Sources overrides the default data/config/cache directories.
	// Entries are relative to the home directory unless absolute.
	Sources []string `yaml:"sources,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Progress toggles the progress bar. Nil means unset.
	Progress *bool `yaml:"progress,omitempty"`

	// Schedule is the cron spec used by --schedule when none is given.
	Schedule string `yaml:"schedule,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `yaml:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	progress := true
	return &Config{
		CapsuleDir: ".nvim_capsules",
		AppName:    "nvim",
		LogLevel:   "warn",
		Progress:   &progress,
	}
}

// ShowProgress reports whether the progress bar is enabled.
func (c *Config) ShowProgress() bool {
	return c.Progress == nil || *c.Progress
}

// Load loads configuration from baseDir/config.yaml.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.config/nvim-time-machine.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// replaces $(VAR) with os.Getenv(VAR)
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated,
// except Sources which the overlay replaces wholesale.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.CapsuleDir = firstNonEmpty(overlay.CapsuleDir, base.CapsuleDir)
	result.AppName = firstNonEmpty(overlay.AppName, base.AppName)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.Schedule = firstNonEmpty(overlay.Schedule, base.Schedule)

	result.Progress = base.Progress
	if overlay.Progress != nil {
		result.Progress = overlay.Progress
	}

	result.Sources = mergeStringSlice(nil, base.Sources)
	if len(overlay.Sources) > 0 {
		result.Sources = mergeStringSlice(nil, overlay.Sources)
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstNonEmpty(a, b string) string {
	if a = strings.TrimSpace(a); a != "" {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
