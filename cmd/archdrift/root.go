package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stephabauva/archdrift/internal/config"
)

var (
	cfgFile   string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "archdrift",
	Short: "Architecture drift auditor",
	Long: `Archdrift cross-references declared system maps against the actual
codebase and reports where the two disagree.

System maps are JSON or YAML documents describing components, API
endpoints, caching strategy, user flows, and feature status. Archdrift
indexes the TypeScript/JavaScript sources, then checks every declared
fact against the code: components must exist and be wired in, endpoints
must match registered routes, mutations must invalidate the caches they
touch, flows must step through real code, and features marked working
must be free of error-level drift.

Findings are ranked error, warning, or info. Only errors fail the audit
by default; see audit --fail-on.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps outcomes to exit codes: 0 for
// a passing audit, 1 for findings at or above the fail-on severity, and
// 2 for usage or runtime errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errAuditFailed) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: merged user and project config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Trace scanning, validation, and watch events to stderr")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// debugLogf returns the tracing function installed on long-running
// components, or nil when --debug is off. SetDebugLog setters ignore nil.
func debugLogf() func(format string, args ...interface{}) {
	if !debugMode {
		return nil
	}
	return func(format string, args ...interface{}) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// loadConfig loads the merged configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromPath(cfgFile)
	}
	return config.Load()
}

// resolveRoot turns the optional positional root argument into an
// absolute directory path, defaulting to the working directory.
func resolveRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root %s is not a directory", abs)
	}
	return abs, nil
}
