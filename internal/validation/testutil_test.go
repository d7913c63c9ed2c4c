package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

// writeProject materializes the given files under a temp root, scans
// them, and returns an audit context over the result.
func writeProject(t *testing.T, files map[string]string) *AuditContext {
	t.Helper()
	root := t.TempDir()

	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	scanner := codebase.NewScanner(root, codebase.NewRegexExtractor())
	pc, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scan fixture project: %v", err)
	}
	return NewAuditContext(root, pc)
}

// mapWithComponents builds a standard-format system map declaring the
// given components.
func mapWithComponents(comps ...sysmap.Component) *sysmap.SystemMap {
	m := &sysmap.SystemMap{
		Name:       "fixture",
		Format:     sysmap.FormatStandard,
		Components: make(map[string]sysmap.Component, len(comps)),
	}
	for _, c := range comps {
		m.Components[c.Name] = c
	}
	return m
}

// issuesOfSeverity filters issues down to one severity.
func issuesOfSeverity(issues []models.ValidationIssue, sev models.Severity) []models.ValidationIssue {
	var out []models.ValidationIssue
	for _, issue := range issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// issuesOfType filters issues down to one issue type.
func issuesOfType(issues []models.ValidationIssue, typ models.IssueType) []models.ValidationIssue {
	var out []models.ValidationIssue
	for _, issue := range issues {
		if issue.Type == typ {
			out = append(out, issue)
		}
	}
	return out
}
