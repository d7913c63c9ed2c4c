// Package tui provides the interactive issue browser behind the audit
// command's --tui flag.
//
// The browser is a read-only view over one finished report. It flattens
// every finding across all documents, plus the orphaned endpoints, into
// a single list with:
//   - Severity tabs (a/e/w/i keys, or Tab to cycle)
//   - A fuzzy filter over document, type, location, and message (press /)
//   - A detail pane for the selected finding
//
// Usage:
//
//	rep := report.New(root, run)
//	if err := tui.Run(rep); err != nil {
//	    return err
//	}
//
// The browser never mutates the report. Users quit with q or Ctrl+C.
package tui
