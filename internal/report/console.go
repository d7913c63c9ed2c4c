package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/pkg/models"
)

const issueIndent = "      "

// ConsoleRenderer writes a human-readable, severity-colored report.
type ConsoleRenderer struct {
	out io.Writer
	// verbose adds per-issue metadata and feature score breakdowns.
	verbose bool
}

// NewConsoleRenderer creates a renderer writing to out.
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

// SetVerbose enables per-issue metadata and feature score breakdowns.
func (r *ConsoleRenderer) SetVerbose(v bool) { r.verbose = v }

// Render writes the whole report: per-document issue lists, feature
// rollups, orphaned endpoints, and the summary block.
func (r *ConsoleRenderer) Render(rep Report) {
	fmt.Fprintf(r.out, "Architecture audit of %s (run %s)\n\n", rep.Root, shortID(rep.RunID))

	for _, doc := range rep.Documents {
		r.renderDocument(doc)
	}

	if len(rep.Orphans) > 0 {
		fmt.Fprintln(r.out, "Orphaned endpoints:")
		for _, issue := range rep.Orphans {
			r.renderIssue(issue)
		}
		fmt.Fprintln(r.out)
	}

	r.renderSummary(rep.Summary)
}

func (r *ConsoleRenderer) renderDocument(doc validation.DocumentResult) {
	status := color.New(color.FgRed).Sprint("✗ FAIL")
	if doc.Result.Passed {
		status = color.New(color.FgGreen).Sprint("✓ PASS")
	}
	fmt.Fprintf(r.out, "%s %s (%d checks, %v)\n", status, documentTitle(doc),
		doc.Result.Metrics.ChecksPerformed, doc.Result.Metrics.ExecutionTime.Round(time.Millisecond))

	for _, issue := range doc.Result.Issues {
		r.renderIssue(issue)
	}
	if len(doc.Features) > 0 {
		r.renderFeatures(doc.Features)
	}
	fmt.Fprintln(r.out)
}

func (r *ConsoleRenderer) renderIssue(issue models.ValidationIssue) {
	symbol, attr := severityGlyph(issue.Severity)
	tag := color.New(attr).Sprintf("%s %-7s", symbol, string(issue.Severity))
	fmt.Fprintf(r.out, "  %s [%s] %s\n", tag, issue.Type, issue.Message)
	if issue.Location != "" {
		fmt.Fprintf(r.out, "%slocation: %s\n", issueIndent, issue.Location)
	}
	if issue.Suggestion != "" {
		fmt.Fprintf(r.out, "%sfix: %s\n", issueIndent, issue.Suggestion)
	}
	if r.verbose && len(issue.Metadata) > 0 {
		keys := make([]string, 0, len(issue.Metadata))
		for k := range issue.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(r.out, "%s%s: %v\n", issueIndent, k, issue.Metadata[k])
		}
	}
}

func (r *ConsoleRenderer) renderFeatures(features []models.FeatureIntegrationStatus) {
	fmt.Fprintln(r.out, "  Features:")
	for _, ft := range features {
		symbol, attr := statusGlyph(ft.OverallStatus)
		fmt.Fprintf(r.out, "    %s %s: %s (score %.2f)\n",
			color.New(attr).Sprint(symbol), ft.FeatureName, ft.OverallStatus, ft.AverageScore())
		if len(ft.Blockers) > 0 {
			fmt.Fprintf(r.out, "      blocked by %d error(s)\n", len(ft.Blockers))
		}
		if !r.verbose {
			continue
		}
		for _, c := range ft.Components {
			fmt.Fprintf(r.out, "      component %s: %.2f\n", c.Name, c.Score)
		}
		for _, a := range ft.APIs {
			fmt.Fprintf(r.out, "      api %s: %.2f\n", a.Endpoint, a.Score)
		}
		for _, fl := range ft.Flows {
			fmt.Fprintf(r.out, "      flow %s: %.2f\n", fl.Name, fl.Score)
		}
		for _, ev := range ft.Evidence {
			fmt.Fprintf(r.out, "      evidence %s: %s\n", ev.EvidenceLocation, ev.VerificationStatus)
		}
	}
}

func (r *ConsoleRenderer) renderSummary(s Summary) {
	status := color.New(color.FgRed).Sprint("✗ FAIL")
	if s.Passed {
		status = color.New(color.FgGreen).Sprint("✓ PASS")
	}
	fmt.Fprintf(r.out, "%s  %d errors, %d warnings, %d infos\n", status, s.Errors, s.Warnings, s.Infos)
	fmt.Fprintf(r.out, "Documents: %d  Checks: %d  Time: %v\n",
		s.Documents, s.ChecksPerformed, s.ExecutionTime.Round(time.Millisecond))
}

// severityGlyph returns the symbol and color for one severity.
func severityGlyph(sev models.Severity) (string, color.Attribute) {
	switch sev {
	case models.SeverityError:
		return "✗", color.FgRed
	case models.SeverityWarning:
		return "⚠", color.FgYellow
	default:
		return "ℹ", color.FgCyan
	}
}

// statusGlyph returns the symbol and color for one integration status.
func statusGlyph(status models.OverallStatus) (string, color.Attribute) {
	switch status {
	case models.StatusFullyIntegrated:
		return "✓", color.FgGreen
	case models.StatusPartiallyIntegrated:
		return "⚠", color.FgYellow
	case models.StatusBroken:
		return "✗", color.FgRed
	default:
		return "?", color.FgYellow
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
