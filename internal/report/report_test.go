package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/pkg/models"
)

// fixtureRun builds a run with one failing and one passing document plus
// an orphan finding.
func fixtureRun() validation.RunResult {
	failing := validation.DocumentResult{
		MapPath: "maps/core.json",
		MapName: "core",
		Result: models.NewResult([]models.ValidationIssue{
			{
				Type:     models.IssueMissingComponent,
				Severity: models.SeverityError,
				Message:  "component 'GhostWidget' not found at src/widgets/GhostWidget.tsx or anywhere in the codebase, create it",
				Location: "GhostWidget",
			},
			{
				Type:       models.IssueCrossReferenceError,
				Severity:   models.SeverityWarning,
				Message:    "component 'MemoriesPage' (src/pages/MemoriesPage.tsx) is never imported anywhere, likely dead code",
				Location:   "MemoriesPage",
				Suggestion: "import it from a page or route",
			},
		}, 12, 40*time.Millisecond),
		Features: []models.FeatureIntegrationStatus{
			{
				FeatureName:   "memories",
				Components:    []models.ComponentIntegrationStatus{{Name: "MemoriesPage", Score: 1}},
				APIs:          []models.APIIntegrationStatus{{Endpoint: "POST /api/memories", Score: 1}},
				OverallStatus: models.StatusUnverified,
			},
		},
	}
	passing := validation.DocumentResult{
		MapPath: "maps/health.json",
		MapName: "health",
		Result:  models.NewResult(nil, 3, 5*time.Millisecond),
	}
	return validation.RunResult{
		Documents: []validation.DocumentResult{failing, passing},
		Orphans: models.NewResult([]models.ValidationIssue{{
			Type:       models.IssueAPIMismatch,
			Severity:   models.SeverityInfo,
			Message:    "endpoint GET /api/health (registered in server/routes/memories.ts) is implemented but not documented in any system map",
			Location:   "GET /api/health",
			Suggestion: "document the endpoint or remove it",
		}}, 2, 0),
		Passed: false,
	}
}

func TestNew_AggregatesSummary(t *testing.T) {
	rep := New("/srv/app", fixtureRun())

	if _, err := uuid.Parse(rep.RunID); err != nil {
		t.Errorf("run ID is not a uuid: %v", err)
	}
	if rep.GeneratedAt.IsZero() {
		t.Error("expected a generation timestamp")
	}
	if rep.Root != "/srv/app" {
		t.Errorf("unexpected root %s", rep.Root)
	}

	s := rep.Summary
	if s.Passed {
		t.Error("expected a failing summary")
	}
	if s.Documents != 2 || s.Errors != 1 || s.Warnings != 1 || s.Infos != 1 {
		t.Errorf("unexpected summary counts: %+v", s)
	}
	if s.ChecksPerformed != 17 {
		t.Errorf("expected 17 checks, got %d", s.ChecksPerformed)
	}
	if s.ExecutionTime != 45*time.Millisecond {
		t.Errorf("expected summed execution time 45ms, got %v", s.ExecutionTime)
	}
}

func TestWriteJSON_Stable(t *testing.T) {
	rep := New("/srv/app", fixtureRun())

	var first, second bytes.Buffer
	if err := WriteJSON(&first, rep); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := WriteJSON(&second, rep); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if first.String() != second.String() {
		t.Error("expected identical output for the same report")
	}
	for _, want := range []string{`"runId"`, `"documents"`, `"summary"`, `"checksPerformed": 17`} {
		if !strings.Contains(first.String(), want) {
			t.Errorf("expected JSON to contain %s", want)
		}
	}
}

func TestDocumentTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  validation.DocumentResult
		want string
	}{
		{"path and name", validation.DocumentResult{MapPath: "maps/a.json", MapName: "a"}, "maps/a.json (a)"},
		{"path only", validation.DocumentResult{MapPath: "maps/a.json"}, "maps/a.json"},
		{"name only", validation.DocumentResult{MapName: "inline"}, "inline"},
		{"name equals path", validation.DocumentResult{MapPath: "maps/a.json", MapName: "maps/a.json"}, "maps/a.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := documentTitle(tt.doc); got != tt.want {
				t.Errorf("documentTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
