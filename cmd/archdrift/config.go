package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephabauva/archdrift/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify archdrift configuration.

Without arguments, displays current configuration and where it comes
from. With one argument (key), displays the value for that key. With
two arguments (key value), sets the value in the user config file.

Configuration is stored at ~/.config/archdrift/config.yaml
Project-specific overrides can be placed in .archdrift.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		displayAllConfig(cfg)
		return nil
	case 1:
		return displayConfigKey(cfg, args[0])
	default:
		return setConfigKey(cfg, args[0], args[1])
	}
}

// displayAllConfig prints every configuration value and the files they
// are read from.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("scan.extensions: %s\n", strings.Join(cfg.Scan.Extensions, ","))
	fmt.Printf("scan.skip_dirs: %s\n", strings.Join(cfg.Scan.SkipDirs, ","))
	fmt.Printf("scan.max_file_size: %d\n", cfg.Scan.MaxFileSize)
	fmt.Printf("audit.maps_dir: %s\n", cfg.Audit.MapsDir)
	fmt.Printf("audit.parallelism: %d\n", cfg.Audit.Parallelism)
	fmt.Printf("audit.doc_timeout: %s\n", cfg.Audit.DocTimeout)
	fmt.Printf("audit.fail_on: %s\n", cfg.Audit.FailOn)
	fmt.Printf("validators.check_handler_files: %t\n", cfg.Validators.CheckHandlerFiles)
	fmt.Printf("validators.validate_schemas: %t\n", cfg.Validators.ValidateSchemas)
	fmt.Printf("validators.check_orphans: %t\n", cfg.Validators.CheckOrphans)
	fmt.Printf("validators.check_database_access: %t\n", cfg.Validators.CheckDatabaseAccess)
	fmt.Printf("validators.ui_refresh_threshold: %s\n", formatFloat(cfg.Validators.UIRefreshThreshold))
	fmt.Printf("validators.evidence_max_age: %s\n", cfg.Validators.EvidenceMaxAge)
	fmt.Printf("cache.lookahead: %d\n", cfg.Cache.Lookahead)
	fmt.Printf("watch.debounce: %s\n", cfg.Watch.Debounce)

	fmt.Printf("\nuser config: %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Printf("project config: %s\n", p)
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) error {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

// setConfigKey sets a configuration value and saves the user config.
func setConfigKey(cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "scan.extensions":
		return strings.Join(cfg.Scan.Extensions, ","), nil
	case "scan.skip_dirs":
		return strings.Join(cfg.Scan.SkipDirs, ","), nil
	case "scan.max_file_size":
		return strconv.FormatInt(cfg.Scan.MaxFileSize, 10), nil
	case "audit.maps_dir":
		return cfg.Audit.MapsDir, nil
	case "audit.parallelism":
		return strconv.Itoa(cfg.Audit.Parallelism), nil
	case "audit.doc_timeout":
		return cfg.Audit.DocTimeout.String(), nil
	case "audit.fail_on":
		return cfg.Audit.FailOn, nil
	case "validators.check_handler_files":
		return strconv.FormatBool(cfg.Validators.CheckHandlerFiles), nil
	case "validators.validate_schemas":
		return strconv.FormatBool(cfg.Validators.ValidateSchemas), nil
	case "validators.check_orphans":
		return strconv.FormatBool(cfg.Validators.CheckOrphans), nil
	case "validators.check_database_access":
		return strconv.FormatBool(cfg.Validators.CheckDatabaseAccess), nil
	case "validators.ui_refresh_threshold":
		return formatFloat(cfg.Validators.UIRefreshThreshold), nil
	case "validators.evidence_max_age":
		return cfg.Validators.EvidenceMaxAge.String(), nil
	case "cache.lookahead":
		return strconv.Itoa(cfg.Cache.Lookahead), nil
	case "watch.debounce":
		return cfg.Watch.Debounce.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "scan.extensions":
		cfg.Scan.Extensions = splitList(value)
	case "scan.skip_dirs":
		cfg.Scan.SkipDirs = splitList(value)
	case "scan.max_file_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for max_file_size: %w", err)
		}
		cfg.Scan.MaxFileSize = n
	case "audit.maps_dir":
		cfg.Audit.MapsDir = value
	case "audit.parallelism":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for parallelism: %w", err)
		}
		cfg.Audit.Parallelism = n
	case "audit.doc_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for doc_timeout: %w", err)
		}
		cfg.Audit.DocTimeout = d
	case "audit.fail_on":
		if value != "error" && value != "warning" && value != "never" {
			return fmt.Errorf("invalid fail_on severity %q (want error, warning, or never)", value)
		}
		cfg.Audit.FailOn = value
	case "validators.check_handler_files":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for check_handler_files: %w", err)
		}
		cfg.Validators.CheckHandlerFiles = b
	case "validators.validate_schemas":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for validate_schemas: %w", err)
		}
		cfg.Validators.ValidateSchemas = b
	case "validators.check_orphans":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for check_orphans: %w", err)
		}
		cfg.Validators.CheckOrphans = b
	case "validators.check_database_access":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for check_database_access: %w", err)
		}
		cfg.Validators.CheckDatabaseAccess = b
	case "validators.ui_refresh_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for ui_refresh_threshold: %w", err)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("ui_refresh_threshold must be between 0 and 1, got %s", value)
		}
		cfg.Validators.UIRefreshThreshold = f
	case "validators.evidence_max_age":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for evidence_max_age: %w", err)
		}
		cfg.Validators.EvidenceMaxAge = d
	case "cache.lookahead":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for lookahead: %w", err)
		}
		cfg.Cache.Lookahead = n
	case "watch.debounce":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for debounce: %w", err)
		}
		cfg.Watch.Debounce = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
