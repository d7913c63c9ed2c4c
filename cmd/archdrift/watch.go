package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephabauva/archdrift/internal/report"
	"github.com/stephabauva/archdrift/internal/watch"
)

var (
	watchMaps     string
	watchIgnore   []string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Re-run the audit whenever the project changes",
	Long: `Watch audits once, then watches the project tree and re-audits after
each burst of file changes. Every run prints a one-line pass/fail
banner with issue counts and the delta against the previous run.

Directories the scanner skips are not watched. Stop with Ctrl+C.

Examples:
  archdrift watch
  archdrift watch ../shop --debounce 1s
  archdrift watch --ignore out --ignore report.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchMaps, "maps", "", "Directory or document holding system maps")
	watchCmd.Flags().StringSliceVar(&watchIgnore, "ignore", nil, "Extra paths to ignore, relative to root")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before a change burst triggers a re-audit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p := &auditPipeline{root: root, cfg: cfg, opts: cfg.ValidatorOptions(), mapsDir: watchMaps, debug: debugLogf()}
	cycle := func(ctx context.Context) (watch.Counts, error) {
		rep, err := p.run(ctx)
		if err != nil {
			return watch.Counts{}, err
		}
		return summaryCounts(rep.Summary), nil
	}

	w := watch.New(root, cycle)
	w.SetSkipDirs(cfg.Scan.SkipDirs)
	w.SetDebugLog(debugLogf())

	debounce := cfg.Watch.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce = watchDebounce
	}
	w.SetDebounce(debounce)

	if len(watchIgnore) > 0 {
		paths := make([]string, len(watchIgnore))
		for i, path := range watchIgnore {
			if filepath.IsAbs(path) {
				paths[i] = path
			} else {
				paths[i] = filepath.Join(root, path)
			}
		}
		w.SetIgnorePaths(paths...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// summaryCounts reduces a report summary to the counts the watch banner
// prints.
func summaryCounts(s report.Summary) watch.Counts {
	return watch.Counts{
		Errors:   s.Errors,
		Warnings: s.Warnings,
		Infos:    s.Infos,
		Passed:   s.Passed,
	}
}
