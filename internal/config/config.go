package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Aman-CERP/ancheck/internal/errors"
	"github.com/Aman-CERP/ancheck/internal/scanner"
)

const (
	// AppDirName is the data directory name under the user data dir.
	AppDirName = "AnCheck"

	// DBFileName is the index database file name.
	DBFileName = "ancheck_index.db"

	// LockFileName guards index passes across processes.
	LockFileName = "index.lock"
)

// Config represents the complete ancheck configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// IndexConfig configures the crawler and the background loop.
type IndexConfig struct {
	// Roots to walk. Empty means DefaultRoots().
	Roots          []string      `yaml:"roots" json:"roots"`
	MaxDepth       int           `yaml:"max_depth" json:"max_depth"`
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`
	FollowSymlinks bool          `yaml:"follow_symlinks" json:"follow_symlinks"`
	SkipDirs       []string      `yaml:"skip_dirs" json:"skip_dirs"`
	ExcludeGlobs   []string      `yaml:"exclude_globs" json:"exclude_globs"`
	InitialDelay   time.Duration `yaml:"initial_delay" json:"initial_delay"`
	Interval       time.Duration `yaml:"interval" json:"interval"`
}

// SearchConfig configures ranking limits.
type SearchConfig struct {
	MaxResults          int `yaml:"max_results" json:"max_results"`
	CandidateMultiplier int `yaml:"candidate_multiplier" json:"candidate_multiplier"`
}

// StorageConfig locates the index database.
type StorageConfig struct {
	// Path of the SQLite file. Empty means DefaultDBPath().
	Path string `yaml:"path" json:"path"`
}

// TelemetryConfig controls local query metrics.
type TelemetryConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns a configuration with default values.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Roots:          []string{},
			MaxDepth:       scanner.DefaultMaxDepth,
			BatchSize:      500,
			FollowSymlinks: true,
			SkipDirs:       append([]string(nil), scanner.DefaultSkipDirs...),
			ExcludeGlobs:   []string{},
			InitialDelay:   2 * time.Minute,
			Interval:       5 * time.Minute,
		},
		Search: SearchConfig{
			MaxResults:          15,
			CandidateMultiplier: 3,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			FlushInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/ancheck/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/ancheck/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ancheck", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ancheck", "config.yaml")
	}
	return filepath.Join(home, ".config", "ancheck", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the effective configuration, in increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/ancheck/config.yaml), if present
//  3. explicitPath, if non-empty (must exist)
//  4. Environment variables (ANCHECK_*)
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, apperrors.ConfigError("failed to load user config", err).WithDetail("path", userPath)
		}
	}

	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, apperrors.New(apperrors.ErrCodeConfigNotFound, "config file not found: "+explicitPath, nil).
				WithDetail("path", explicitPath)
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, apperrors.ConfigError("failed to load config", err).WithDetail("path", explicitPath)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, apperrors.ConfigError("invalid environment override", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConfigError("invalid configuration", err).
			WithSuggestion("Run 'ancheck config show' to inspect the effective configuration")
	}

	return cfg, nil
}

// loadYAML decodes path over the current values. Keys absent from the
// file keep their current value; unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !stderrors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies ANCHECK_* variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ANCHECK_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ANCHECK_ROOTS"); v != "" {
		c.Index.Roots = splitList(v)
	}
	if v := os.Getenv("ANCHECK_MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANCHECK_MAX_DEPTH: %w", err)
		}
		c.Index.MaxDepth = n
	}
	if v := os.Getenv("ANCHECK_MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANCHECK_MAX_RESULTS: %w", err)
		}
		c.Search.MaxResults = n
	}
	if v := os.Getenv("ANCHECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ANCHECK_TELEMETRY"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ANCHECK_TELEMETRY: %w", err)
		}
		c.Telemetry.Enabled = enabled
	}
	return nil
}

// splitList splits on the OS list separator, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.MaxDepth < 1 {
		return fmt.Errorf("index.max_depth must be at least 1, got %d", c.Index.MaxDepth)
	}
	if c.Index.BatchSize < 1 {
		return fmt.Errorf("index.batch_size must be at least 1, got %d", c.Index.BatchSize)
	}
	if c.Index.Interval <= 0 {
		return fmt.Errorf("index.interval must be positive, got %s", c.Index.Interval)
	}
	if c.Index.InitialDelay < 0 {
		return fmt.Errorf("index.initial_delay must be non-negative, got %s", c.Index.InitialDelay)
	}
	if c.Search.MaxResults < 1 {
		return fmt.Errorf("search.max_results must be at least 1, got %d", c.Search.MaxResults)
	}
	if c.Search.CandidateMultiplier < 1 {
		return fmt.Errorf("search.candidate_multiplier must be at least 1, got %d", c.Search.CandidateMultiplier)
	}
	if c.Telemetry.Enabled && c.Telemetry.FlushInterval < 0 {
		return fmt.Errorf("telemetry.flush_interval must be non-negative, got %s", c.Telemetry.FlushInterval)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// EffectiveRoots returns the configured roots, or DefaultRoots() when
// none are configured.
func (c *Config) EffectiveRoots() []string {
	if len(c.Index.Roots) > 0 {
		return c.Index.Roots
	}
	return DefaultRoots()
}

// EffectiveDBPath returns the configured database path, or DefaultDBPath().
func (c *Config) EffectiveDBPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return DefaultDBPath()
}

// ScanOptions converts the index section into scanner options.
func (c *Config) ScanOptions() scanner.ScanOptions {
	return scanner.ScanOptions{
		Roots:          c.EffectiveRoots(),
		MaxDepth:       c.Index.MaxDepth,
		SkipDirs:       c.Index.SkipDirs,
		ExcludeGlobs:   c.Index.ExcludeGlobs,
		FollowSymlinks: c.Index.FollowSymlinks,
	}
}

// WriteYAML writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := c.MarshalYAMLBytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MarshalYAMLBytes renders the configuration as YAML.
func (c *Config) MarshalYAMLBytes() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// UserDataDir returns the per-user data directory:
// %LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS,
// and $XDG_DATA_HOME or ~/.local/share elsewhere.
func UserDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			return v
		}
	case "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support")
		}
	default:
		if v := os.Getenv("XDG_DATA_HOME"); v != "" {
			return v
		}
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".local", "share")
		}
	}
	return "."
}

// DataDir is the application directory holding the index and lock file.
func DataDir() string {
	return filepath.Join(UserDataDir(), AppDirName)
}

// DefaultDBPath returns <user data dir>/AnCheck/ancheck_index.db.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), DBFileName)
}

// DefaultRoots lists the launcher's standard folders, keeping those that
// exist: the home Desktop, Documents and Downloads, the user and system
// Start Menus, and Program Files.
func DefaultRoots() []string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "Documents"),
			filepath.Join(home, "Downloads"))
	}

	// os.UserConfigDir is %APPDATA% on Windows
	if roaming, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(roaming, "Microsoft", "Windows", "Start Menu"))
	}

	if runtime.GOOS == "windows" {
		candidates = append(candidates, `C:\ProgramData\Microsoft\Windows\Start Menu`)
	}
	for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if v := os.Getenv(env); v != "" {
			candidates = append(candidates, v)
		}
	}

	roots := make([]string, 0, len(candidates))
	for _, dir := range candidates {
		if dirExists(dir) {
			roots = append(roots, dir)
		}
	}
	return roots
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
