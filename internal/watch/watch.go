// Package watch re-runs the audit whenever the project changes, with a
// debounce so an editor save burst triggers a single run.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last
// filesystem event before re-auditing.
const DefaultDebounce = 300 * time.Millisecond

// Counts summarizes one audit cycle for the change banner.
type Counts struct {
	Errors   int
	Warnings int
	Infos    int
	Passed   bool
}

// Cycle runs one audit pass and reports its issue counts.
type Cycle func(ctx context.Context) (Counts, error)

// Watcher re-audits the project root on filesystem changes.
type Watcher struct {
	root        string
	cycle       Cycle
	debounce    time.Duration
	skipDirs    map[string]bool
	ignorePaths []string
	out         io.Writer
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New returns a watcher over root that runs cycle when files change.
func New(root string, cycle Cycle) *Watcher {
	return &Watcher{
		root:     root,
		cycle:    cycle,
		debounce: DefaultDebounce,
		skipDirs: map[string]bool{},
		out:      os.Stdout,
		debugLog: func(format string, args ...interface{}) {}, // no-op by default
	}
}

// SetDebounce overrides how long the watcher waits after the last event
// before re-auditing.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// SetSkipDirs replaces the directory names that are never watched.
func (w *Watcher) SetSkipDirs(dirs []string) {
	w.skipDirs = make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			w.skipDirs[dir] = true
		}
	}
}

// SetIgnorePaths adds paths whose changes never trigger a re-audit,
// such as report files the audit itself writes.
func (w *Watcher) SetIgnorePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		w.ignorePaths = append(w.ignorePaths, filepath.Clean(p))
	}
}

// SetOutput redirects the banner lines, which go to stdout by default.
func (w *Watcher) SetOutput(out io.Writer) {
	if out != nil {
		w.out = out
	}
}

// SetDebugLog installs a logging function for event tracing.
func (w *Watcher) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		w.debugLog = fn
	}
}

// Run audits once, then re-audits on changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer watcher.Close()

	dirs, err := w.collectWatchDirs()
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			w.debugLog("[watch.Run] cannot watch %s: %v", dir, err)
		}
	}
	w.debugLog("[watch.Run] watching %d directories under %s", len(dirs), w.root)

	var prev Counts
	first := true
	w.runCycle(ctx, &prev, &first)

	// A fresh timer per burst, following the stop-and-rearm debounce.
	// The timer only kicks the loop so cycles never run concurrently.
	kick := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.ignoresEvent(ev.Name) {
				continue
			}
			w.debugLog("[watch.Run] %s %s", ev.Op, ev.Name)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case kick <- struct{}{}:
				default:
				}
			})
		case <-kick:
			w.runCycle(ctx, &prev, &first)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(w.out, "watch error: %v\n", err)
		}
	}
}

// runCycle performs one audit pass and prints its banner. Failed cycles
// keep the previous counts so the next delta stays meaningful.
func (w *Watcher) runCycle(ctx context.Context, prev *Counts, first *bool) {
	counts, err := w.cycle(ctx)
	if err != nil {
		fmt.Fprintf(w.out, "%s audit error: %v\n", time.Now().Format("15:04:05"), err)
		return
	}
	fmt.Fprintf(w.out, "%s %s\n", time.Now().Format("15:04:05"), banner(counts, *prev, *first))
	*prev = counts
	*first = false
}

// collectWatchDirs lists every directory under root to subscribe to,
// honoring the skip list and the ignore paths.
func (w *Watcher) collectWatchDirs() ([]string, error) {
	var dirs []string
	err := filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.root && (w.skipDirs[info.Name()] || w.ignored(path)) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// ignored reports whether path falls under any configured ignore path.
func (w *Watcher) ignored(path string) bool {
	path = filepath.Clean(path)
	for _, p := range w.ignorePaths {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// ignoresEvent reports whether a filesystem event should not trigger a
// re-audit.
func (w *Watcher) ignoresEvent(name string) bool {
	if w.ignored(name) {
		return true
	}
	return w.skipDirs[filepath.Base(name)]
}

// banner renders one cycle's outcome with the change since the last
// cycle.
func banner(cur, prev Counts, first bool) string {
	var b strings.Builder
	if cur.Passed {
		b.WriteString(color.New(color.FgGreen).Sprint("✓ PASS"))
	} else {
		b.WriteString(color.New(color.FgRed).Sprint("✗ FAIL"))
	}
	fmt.Fprintf(&b, "  %d errors, %d warnings, %d infos", cur.Errors, cur.Warnings, cur.Infos)
	if !first {
		fmt.Fprintf(&b, " (%s)", deltas(cur, prev))
	}
	return b.String()
}

// deltas renders the change in issue counts between two cycles.
func deltas(cur, prev Counts) string {
	parts := make([]string, 0, 3)
	if d := cur.Errors - prev.Errors; d != 0 {
		parts = append(parts, fmt.Sprintf("%+d errors", d))
	}
	if d := cur.Warnings - prev.Warnings; d != 0 {
		parts = append(parts, fmt.Sprintf("%+d warnings", d))
	}
	if d := cur.Infos - prev.Infos; d != 0 {
		parts = append(parts, fmt.Sprintf("%+d infos", d))
	}
	if len(parts) == 0 {
		return "no change"
	}
	return strings.Join(parts, ", ")
}
