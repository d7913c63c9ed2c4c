package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stephabauva/archdrift/internal/report"
	"github.com/stephabauva/archdrift/internal/tui"
)

// errAuditFailed signals findings at or above the fail-on severity. It
// maps to exit code 1 instead of the runtime-error code.
var errAuditFailed = errors.New("audit failed")

var (
	auditJSON     bool
	auditMarkdown string
	auditMaps     string
	auditFailOn   string
	auditTUI      bool
	auditOrphans  bool
	auditHandlers bool
	auditSchemas  bool
	auditDatabase bool
	auditVerbose  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [root]",
	Short: "Audit a codebase against its system maps",
	Long: `Audit scans the codebase under root (default: the working directory),
loads every system map document, and cross-references the two.

The maps location is resolved from --maps, the configuration, or the
default directories (system-maps, docs/system-maps, .system-maps).
Documents are validated independently; one that fails to load becomes a
single error finding and the audit continues.

Examples:
  archdrift audit                        # audit the working directory
  archdrift audit ../shop --fail-on warning
  archdrift audit --json | jq '.summary'
  archdrift audit --markdown report.md
  archdrift audit --tui                  # browse findings interactively`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Write the report as JSON to stdout")
	auditCmd.Flags().StringVar(&auditMarkdown, "markdown", "", "Write a markdown report to this file")
	auditCmd.Flags().StringVar(&auditMaps, "maps", "", "Directory or document holding system maps")
	auditCmd.Flags().StringVar(&auditFailOn, "fail-on", "", "Severity that fails the audit: error, warning, or never")
	auditCmd.Flags().BoolVar(&auditTUI, "tui", false, "Browse findings in an interactive terminal UI")
	auditCmd.Flags().BoolVar(&auditOrphans, "orphans", true, "Report implemented endpoints no document declares")
	auditCmd.Flags().BoolVar(&auditHandlers, "handlers", true, "Check declared endpoints against their handler files")
	auditCmd.Flags().BoolVar(&auditSchemas, "schemas", true, "Validate document structure before cross-referencing")
	auditCmd.Flags().BoolVar(&auditDatabase, "database", false, "Report persistence markers near declared endpoints")
	auditCmd.Flags().BoolVar(&auditVerbose, "verbose", false, "Include info findings and per-feature status")
}

func runAudit(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	failOn := cfg.Audit.FailOn
	if cmd.Flags().Changed("fail-on") {
		failOn = auditFailOn
	}
	switch failOn {
	case "error", "warning", "never":
	default:
		return fmt.Errorf("invalid fail-on severity %q (want error, warning, or never)", failOn)
	}

	// Flags override the configuration only when set explicitly.
	opts := cfg.ValidatorOptions()
	if cmd.Flags().Changed("orphans") {
		opts.CheckOrphans = auditOrphans
	}
	if cmd.Flags().Changed("handlers") {
		opts.CheckHandlerFiles = auditHandlers
	}
	if cmd.Flags().Changed("schemas") {
		opts.ValidateSchemas = auditSchemas
	}
	if cmd.Flags().Changed("database") {
		opts.CheckDatabaseAccess = auditDatabase
	}

	p := &auditPipeline{root: root, cfg: cfg, opts: opts, mapsDir: auditMaps, debug: debugLogf()}
	rep, err := p.run(context.Background())
	if err != nil {
		return err
	}

	switch {
	case auditJSON:
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
	case auditTUI:
		if err := tui.Run(rep); err != nil {
			return fmt.Errorf("issue browser: %w", err)
		}
	default:
		renderer := report.NewConsoleRenderer(os.Stdout)
		renderer.SetVerbose(auditVerbose)
		renderer.Render(rep)
	}

	if auditMarkdown != "" {
		if err := os.WriteFile(auditMarkdown, []byte(report.RenderMarkdown(rep)), 0644); err != nil {
			return fmt.Errorf("write markdown report: %w", err)
		}
	}

	return auditOutcome(rep.Summary, failOn)
}

// auditOutcome maps a run summary to the exit contract for the chosen
// fail-on severity.
func auditOutcome(s report.Summary, failOn string) error {
	switch failOn {
	case "never":
		return nil
	case "warning":
		if s.Errors > 0 || s.Warnings > 0 {
			return errAuditFailed
		}
	default:
		if s.Errors > 0 {
			return errAuditFailed
		}
	}
	return nil
}
