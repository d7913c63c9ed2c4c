// Package config handles configuration loading for archdrift.
// It supports XDG config paths, project-level overrides, and
// ARCHDRIFT_* environment variables, in rising order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/internal/watch"
)

const (
	// ProjectConfigName is the per-project override file, found by
	// walking up from the working directory.
	ProjectConfigName = ".archdrift.yaml"

	// DefaultMapsDir is where system map documents are looked for when
	// no directory is given on the command line.
	DefaultMapsDir = ".system-maps"

	// DefaultFailOn fails a run on errors and tolerates warnings.
	DefaultFailOn = "error"
)

// Config holds every tunable of an audit run.
type Config struct {
	Scan       ScanConfig       `mapstructure:"scan"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Validators ValidatorsConfig `mapstructure:"validators"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Watch      WatchConfig      `mapstructure:"watch"`
}

// ScanConfig controls how the codebase index is built.
type ScanConfig struct {
	// Extensions lists the file extensions included in the scan.
	Extensions []string `mapstructure:"extensions"`
	// SkipDirs lists directory names the scanner never descends into.
	SkipDirs []string `mapstructure:"skip_dirs"`
	// MaxFileSize caps how many bytes of a single file are read.
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// AuditConfig controls document discovery and run-level behavior.
type AuditConfig struct {
	// MapsDir is the directory searched for system map documents.
	MapsDir string `mapstructure:"maps_dir"`
	// Parallelism caps how many documents are validated at once.
	Parallelism int `mapstructure:"parallelism"`
	// DocTimeout is the wall-clock budget for one document.
	DocTimeout time.Duration `mapstructure:"doc_timeout"`
	// FailOn picks the severity that makes the audit exit non-zero:
	// error, warning, or never.
	FailOn string `mapstructure:"fail_on"`
}

// ValidatorsConfig switches individual checks on and off and carries
// their thresholds.
type ValidatorsConfig struct {
	CheckHandlerFiles   bool          `mapstructure:"check_handler_files"`
	ValidateSchemas     bool          `mapstructure:"validate_schemas"`
	CheckOrphans        bool          `mapstructure:"check_orphans"`
	CheckDatabaseAccess bool          `mapstructure:"check_database_access"`
	UIRefreshThreshold  float64       `mapstructure:"ui_refresh_threshold"`
	EvidenceMaxAge      time.Duration `mapstructure:"evidence_max_age"`
}

// CacheConfig controls invalidation-chain analysis.
type CacheConfig struct {
	// Lookahead is how many lines after a mutation are searched for an
	// invalidation call.
	Lookahead int `mapstructure:"lookahead"`
	// Expectations maps endpoint prefixes to the cache keys a mutation
	// under that prefix must invalidate. When set it replaces the
	// built-in table.
	Expectations map[string][]string `mapstructure:"expectations"`
}

// WatchConfig controls the re-audit loop.
type WatchConfig struct {
	// Debounce is how long after the last change a re-audit waits.
	Debounce time.Duration `mapstructure:"debounce"`
}

// Load reads configuration from all sources. Later sources win: the
// user config under the XDG config home, then the project config found
// by walking up from the working directory, then ARCHDRIFT_* variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := getUserConfigDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging %s: %w", projectConfig, err)
		}
	}

	v.SetEnvPrefix("ARCHDRIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath reads a single config file, applying defaults for
// anything it leaves unset. The --config flag and tests use this.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without consulting any
// file or environment variable.
func Default() *Config {
	opts := validation.DefaultOptions()
	return &Config{
		Scan: ScanConfig{
			Extensions:  append([]string(nil), codebase.DefaultExtensions...),
			SkipDirs:    append([]string(nil), codebase.DefaultSkipDirs...),
			MaxFileSize: codebase.DefaultMaxFileSize,
		},
		Audit: AuditConfig{
			MapsDir:     DefaultMapsDir,
			Parallelism: validation.DefaultParallelism,
			DocTimeout:  validation.DefaultDocTimeout,
			FailOn:      DefaultFailOn,
		},
		Validators: ValidatorsConfig{
			CheckHandlerFiles:   opts.CheckHandlerFiles,
			ValidateSchemas:     opts.ValidateSchemas,
			CheckOrphans:        opts.CheckOrphans,
			CheckDatabaseAccess: opts.CheckDatabaseAccess,
			UIRefreshThreshold:  opts.UIRefreshThreshold,
			EvidenceMaxAge:      opts.EvidenceMaxAge,
		},
		Cache: CacheConfig{
			Lookahead: opts.CacheLookahead,
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
	}
}

// ValidatorOptions converts the loaded settings into validator options.
// An empty expectations table falls back to the built-in one.
func (c *Config) ValidatorOptions() validation.Options {
	opts := validation.Options{
		CheckHandlerFiles:   c.Validators.CheckHandlerFiles,
		ValidateSchemas:     c.Validators.ValidateSchemas,
		CheckOrphans:        c.Validators.CheckOrphans,
		CheckDatabaseAccess: c.Validators.CheckDatabaseAccess,
		UIRefreshThreshold:  c.Validators.UIRefreshThreshold,
		EvidenceMaxAge:      c.Validators.EvidenceMaxAge,
		CacheLookahead:      c.Cache.Lookahead,
		CacheExpectations:   validation.DefaultCacheExpectations(),
	}
	if len(c.Cache.Expectations) > 0 {
		opts.CacheExpectations = c.Cache.Expectations
	}
	return opts
}

// ApplyTo pushes the scan settings onto a scanner. Unset values keep
// the scanner's own defaults.
func (sc ScanConfig) ApplyTo(s *codebase.Scanner) {
	if len(sc.Extensions) > 0 {
		s.SetExtensions(sc.Extensions)
	}
	if len(sc.SkipDirs) > 0 {
		s.SetSkipDirs(sc.SkipDirs)
	}
	if sc.MaxFileSize > 0 {
		s.SetMaxFileSize(sc.MaxFileSize)
	}
}

func setDefaults(v *viper.Viper) {
	opts := validation.DefaultOptions()

	v.SetDefault("scan.extensions", codebase.DefaultExtensions)
	v.SetDefault("scan.skip_dirs", codebase.DefaultSkipDirs)
	v.SetDefault("scan.max_file_size", codebase.DefaultMaxFileSize)

	v.SetDefault("audit.maps_dir", DefaultMapsDir)
	v.SetDefault("audit.parallelism", validation.DefaultParallelism)
	v.SetDefault("audit.doc_timeout", validation.DefaultDocTimeout)
	v.SetDefault("audit.fail_on", DefaultFailOn)

	v.SetDefault("validators.check_handler_files", opts.CheckHandlerFiles)
	v.SetDefault("validators.validate_schemas", opts.ValidateSchemas)
	v.SetDefault("validators.check_orphans", opts.CheckOrphans)
	v.SetDefault("validators.check_database_access", opts.CheckDatabaseAccess)
	v.SetDefault("validators.ui_refresh_threshold", opts.UIRefreshThreshold)
	v.SetDefault("validators.evidence_max_age", opts.EvidenceMaxAge)

	v.SetDefault("cache.lookahead", opts.CacheLookahead)

	v.SetDefault("watch.debounce", watch.DefaultDebounce)
}

// getUserConfigDir resolves the per-user config directory, preferring
// XDG_CONFIG_HOME over ~/.config.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "archdrift")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "archdrift")
}

// findProjectConfig walks up from the working directory looking for a
// project config file. Returns an empty string when none exists.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Save writes the configuration to the user config file, creating the
// directory when needed. Project configs are never written to.
func Save(cfg *Config) error {
	dir := getUserConfigDir()
	if dir == "" {
		return fmt.Errorf("no user config directory available")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))

	v.Set("scan.extensions", cfg.Scan.Extensions)
	v.Set("scan.skip_dirs", cfg.Scan.SkipDirs)
	v.Set("scan.max_file_size", cfg.Scan.MaxFileSize)
	v.Set("audit.maps_dir", cfg.Audit.MapsDir)
	v.Set("audit.parallelism", cfg.Audit.Parallelism)
	v.Set("audit.doc_timeout", cfg.Audit.DocTimeout.String())
	v.Set("audit.fail_on", cfg.Audit.FailOn)
	v.Set("validators.check_handler_files", cfg.Validators.CheckHandlerFiles)
	v.Set("validators.validate_schemas", cfg.Validators.ValidateSchemas)
	v.Set("validators.check_orphans", cfg.Validators.CheckOrphans)
	v.Set("validators.check_database_access", cfg.Validators.CheckDatabaseAccess)
	v.Set("validators.ui_refresh_threshold", cfg.Validators.UIRefreshThreshold)
	v.Set("validators.evidence_max_age", cfg.Validators.EvidenceMaxAge.String())
	v.Set("cache.lookahead", cfg.Cache.Lookahead)
	v.Set("watch.debounce", cfg.Watch.Debounce.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns where the user-level config is read from.
func GetUserConfigPath() string {
	dir := getUserConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// GetProjectConfigPath returns the project config currently in effect,
// or an empty string when none is found.
func GetProjectConfigPath() string {
	return findProjectConfig()
}
