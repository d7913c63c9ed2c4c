// Package report assembles one audit run into a shareable envelope and
// renders it for consoles, JSON consumers, and Markdown documents.
//
// Run identity and generation time live in the envelope, never in the
// validation results, so two runs over identical inputs produce
// identical result payloads.
package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/pkg/models"
)

// Report is the envelope around one audit run.
type Report struct {
	// RunID uniquely identifies this report.
	RunID string `json:"runId"`
	// Root is the audited project root.
	Root string `json:"root"`
	// GeneratedAt is when the report was assembled, in UTC.
	GeneratedAt time.Time `json:"generatedAt"`
	// Documents holds one validated result per system map, in path order.
	Documents []validation.DocumentResult `json:"documents"`
	// Orphans are implemented endpoints no document declares.
	Orphans []models.ValidationIssue `json:"orphans,omitempty"`
	// Summary aggregates counts across documents and the orphan scan.
	Summary Summary `json:"summary"`
}

// Summary is the aggregate block every rendering ends with.
type Summary struct {
	Passed          bool          `json:"passed"`
	Documents       int           `json:"documents"`
	Errors          int           `json:"errors"`
	Warnings        int           `json:"warnings"`
	Infos           int           `json:"infos"`
	ChecksPerformed int           `json:"checksPerformed"`
	ExecutionTime   time.Duration `json:"executionTime"`
}

// New assembles the envelope for a finished run.
func New(root string, run validation.RunResult) Report {
	totals := run.Totals()
	return Report{
		RunID:       uuid.New().String(),
		Root:        root,
		GeneratedAt: time.Now().UTC(),
		Documents:   run.Documents,
		Orphans:     run.Orphans.Issues,
		Summary: Summary{
			Passed:          run.Passed,
			Documents:       len(run.Documents),
			Errors:          run.IssueCount(models.SeverityError),
			Warnings:        run.IssueCount(models.SeverityWarning),
			Infos:           run.IssueCount(models.SeverityInfo),
			ChecksPerformed: totals.ChecksPerformed,
			ExecutionTime:   totals.ExecutionTime,
		},
	}
}

// WriteJSON renders the envelope as indented JSON. Field order follows
// the struct tags, so the output is stable across runs.
func WriteJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// documentTitle names a document the way renderers print it: the path,
// with the declared name appended when it adds information.
func documentTitle(doc validation.DocumentResult) string {
	if doc.MapPath == "" {
		return doc.MapName
	}
	if doc.MapName != "" && doc.MapName != doc.MapPath {
		return doc.MapPath + " (" + doc.MapName + ")"
	}
	return doc.MapPath
}
