package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/stephabauva/archdrift/pkg/models"
)

// RenderMarkdown renders the report as a Markdown document: a summary
// header, one section per system map with an issue table, the feature
// integration rollup, and the orphaned-endpoint list.
func RenderMarkdown(rep Report) string {
	var sb strings.Builder

	sb.WriteString("# Architecture audit\n\n")

	status := "✗ FAIL"
	if rep.Summary.Passed {
		status = "✓ PASS"
	}
	fmt.Fprintf(&sb, "**%s**: %d errors, %d warnings, %d infos\n\n",
		status, rep.Summary.Errors, rep.Summary.Warnings, rep.Summary.Infos)
	fmt.Fprintf(&sb, "- Root: `%s`\n", rep.Root)
	fmt.Fprintf(&sb, "- Run: `%s`\n", rep.RunID)
	fmt.Fprintf(&sb, "- Generated: %s\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- Checks: %d in %v\n\n",
		rep.Summary.ChecksPerformed, rep.Summary.ExecutionTime.Round(time.Millisecond))

	for _, doc := range rep.Documents {
		fmt.Fprintf(&sb, "## %s\n\n", documentTitle(doc))
		if doc.Result.Passed {
			fmt.Fprintf(&sb, "✓ passed (%d checks)\n\n", doc.Result.Metrics.ChecksPerformed)
		} else {
			fmt.Fprintf(&sb, "✗ failed (%d checks)\n\n", doc.Result.Metrics.ChecksPerformed)
		}
		if len(doc.Result.Issues) > 0 {
			issueTable(&sb, doc.Result.Issues)
		}
		if len(doc.Features) > 0 {
			sb.WriteString("### Feature integration\n\n")
			sb.WriteString("| Feature | Status | Score | Evidence | Blockers |\n")
			sb.WriteString("|---|---|---|---|---|\n")
			for _, ft := range doc.Features {
				fmt.Fprintf(&sb, "| %s | %s | %.2f | %d | %d |\n",
					mdCell(ft.FeatureName), ft.OverallStatus, ft.AverageScore(),
					len(ft.Evidence), len(ft.Blockers))
			}
			sb.WriteString("\n")
		}
	}

	if len(rep.Orphans) > 0 {
		sb.WriteString("## Orphaned endpoints\n\n")
		issueTable(&sb, rep.Orphans)
	}

	return sb.String()
}

func issueTable(sb *strings.Builder, issues []models.ValidationIssue) {
	sb.WriteString("| Severity | Type | Location | Message | Suggestion |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, issue := range issues {
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %s |\n",
			issue.Severity, issue.Type, mdCell(issue.Location),
			mdCell(issue.Message), mdCell(issue.Suggestion))
	}
	sb.WriteString("\n")
}

// mdCell escapes characters that would break a Markdown table row.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
