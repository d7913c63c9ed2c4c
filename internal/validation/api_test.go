package validation

import (
	"context"
	"strings"
	"testing"

	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/pkg/models"
)

func apiFixture(t *testing.T) *AuditContext {
	t.Helper()
	return writeProject(t, map[string]string{
		"server/routes/memories.ts": "import { db } from '../db';\n" +
			"app.get('/api/memories', listMemories);\n" +
			"app.post('/api/memories', createMemory);\n" +
			"app.get('/api/y', getY);\n",
		"server/routes/health.ts": "router.get('/api/health-data', getHealth);\n",
		"server/db.ts":            "export const db = {};\n",
	})
}

func mapWithAPIs(apis ...sysmap.APIEndpoint) *sysmap.SystemMap {
	return &sysmap.SystemMap{
		Name:   "fixture",
		Format: sysmap.FormatStandard,
		APIs:   apis,
	}
}

func TestAPIValidator_DeclaredEndpointExists(t *testing.T) {
	actx := apiFixture(t)
	m := mapWithAPIs(sysmap.APIEndpoint{Method: "GET", Path: "/api/memories"})

	res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

	if len(res.Issues) != 0 {
		t.Fatalf("existing endpoint should produce no issues, got %v", res.Issues)
	}
	if !res.Passed {
		t.Error("result should pass")
	}
}

func TestAPIValidator_SimilarPathWarnsNotErrors(t *testing.T) {
	// GET /api/x is declared; only GET /api/y exists. The normalized
	// paths are one edit apart, so a warning suggests the near miss.
	actx := apiFixture(t)
	m := mapWithAPIs(sysmap.APIEndpoint{Method: "GET", Path: "/api/x"})

	res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

	if errs := issuesOfSeverity(res.Issues, models.SeverityError); len(errs) != 0 {
		t.Fatalf("near-miss endpoint must warn, not error: %v", errs)
	}
	warns := issuesOfSeverity(res.Issues, models.SeverityWarning)
	if len(warns) != 1 {
		t.Fatalf("expected exactly one warning, got %d: %v", len(warns), res.Issues)
	}
	if !strings.Contains(warns[0].Message, "GET /api/y") {
		t.Errorf("warning should suggest GET /api/y, got %q", warns[0].Message)
	}
	if !res.Passed {
		t.Error("a warning alone must not fail the result")
	}
}

func TestAPIValidator_SamePathDifferentMethod(t *testing.T) {
	actx := apiFixture(t)
	m := mapWithAPIs(sysmap.APIEndpoint{Method: "DELETE", Path: "/api/memories"})

	res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

	warns := issuesOfSeverity(res.Issues, models.SeverityWarning)
	if len(warns) != 1 {
		t.Fatalf("expected one warning listing method alternatives, got %v", res.Issues)
	}
	if !strings.Contains(warns[0].Message, "/api/memories") {
		t.Errorf("warning should mention the existing path, got %q", warns[0].Message)
	}
}

func TestAPIValidator_NoCandidatesErrors(t *testing.T) {
	actx := apiFixture(t)
	m := mapWithAPIs(sysmap.APIEndpoint{Method: "GET", Path: "/api/completely-unrelated-surface"})

	res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

	errs := issuesOfSeverity(res.Issues, models.SeverityError)
	if len(errs) != 1 {
		t.Fatalf("expected one error for an endpoint with no candidates, got %v", res.Issues)
	}
	if res.Passed {
		t.Error("result must fail")
	}
}

func TestAPIValidator_CandidateListCapped(t *testing.T) {
	actx := writeProject(t, map[string]string{
		"server/routes/all.ts": "app.get('/api/u1', a);\n" +
			"app.get('/api/u2', b);\n" +
			"app.get('/api/u3', c);\n" +
			"app.get('/api/u4', d);\n" +
			"app.get('/api/u5', e);\n",
	})
	m := mapWithAPIs(sysmap.APIEndpoint{Method: "GET", Path: "/api/u9"})

	res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

	warns := issuesOfSeverity(res.Issues, models.SeverityWarning)
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %v", res.Issues)
	}
	candidates, _ := warns[0].Metadata["candidates"].([]string)
	if len(candidates) > 3 {
		t.Errorf("suggestions must be capped at 3, got %d: %v", len(candidates), candidates)
	}
}

func TestAPIValidator_HandlerFile(t *testing.T) {
	actx := apiFixture(t)

	tests := []struct {
		name         string
		endpoint     sysmap.APIEndpoint
		wantSeverity models.Severity
		wantFragment string
	}{
		{
			name:     "matching handler is clean",
			endpoint: sysmap.APIEndpoint{Method: "GET", Path: "/api/memories", HandlerFile: "server/routes/memories.ts"},
		},
		{
			name:         "handler found in conventional directory",
			endpoint:     sysmap.APIEndpoint{Method: "GET", Path: "/api/memories", HandlerFile: "src/handlers/memories.ts"},
			wantSeverity: models.SeverityWarning,
			wantFragment: "server/routes/memories.ts",
		},
		{
			name:         "handler missing everywhere",
			endpoint:     sysmap.APIEndpoint{Method: "GET", Path: "/api/memories", HandlerFile: "src/handlers/nothing.ts"},
			wantSeverity: models.SeverityError,
			wantFragment: "not found anywhere",
		},
		{
			name:         "stale pointer to a real file",
			endpoint:     sysmap.APIEndpoint{Method: "GET", Path: "/api/health-data", HandlerFile: "server/routes/memories.ts"},
			wantSeverity: models.SeverityWarning,
			wantFragment: "stale pointer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mapWithAPIs(tt.endpoint)
			res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

			handlerIssues := issuesOfType(res.Issues, models.IssueHandlerFileMismatch)
			if tt.wantSeverity == "" {
				if len(handlerIssues) != 0 {
					t.Fatalf("expected no handler issues, got %v", handlerIssues)
				}
				return
			}
			matched := issuesOfSeverity(handlerIssues, tt.wantSeverity)
			if len(matched) != 1 {
				t.Fatalf("expected one %s handler issue, got %v", tt.wantSeverity, res.Issues)
			}
			if !strings.Contains(matched[0].Message, tt.wantFragment) {
				t.Errorf("message %q should contain %q", matched[0].Message, tt.wantFragment)
			}
		})
	}
}

func TestAPIValidator_SchemaShape(t *testing.T) {
	actx := apiFixture(t)
	m := mapWithAPIs(sysmap.APIEndpoint{
		Method:         "POST",
		Path:           "/api/memories",
		RequestSchema:  "content: string", // malformed: not an object
		ResponseSchema: map[string]interface{}{"id": "number"},
	})

	res := NewAPIValidator(actx, DefaultOptions()).Validate(context.Background(), m)

	warns := issuesOfSeverity(res.Issues, models.SeverityWarning)
	found := false
	for _, w := range warns {
		if strings.Contains(w.Message, "request schema") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a malformed request schema warning, got %v", res.Issues)
	}
}

func TestAPIValidator_DatabaseAccessInfo(t *testing.T) {
	actx := writeProject(t, map[string]string{
		// No persistence markers anywhere in the handler.
		"server/routes/echo.ts": "app.post('/api/echo', (req, res) => res.json(req.body));\n",
	})
	opts := DefaultOptions()
	opts.CheckDatabaseAccess = true
	m := mapWithAPIs(sysmap.APIEndpoint{Method: "POST", Path: "/api/echo"})

	res := NewAPIValidator(actx, opts).Validate(context.Background(), m)

	infos := issuesOfSeverity(res.Issues, models.SeverityInfo)
	if len(infos) != 1 || !strings.Contains(infos[0].Message, "no persistence") {
		t.Fatalf("expected one persistence info issue, got %v", res.Issues)
	}
	if !res.Passed {
		t.Error("info issues must not fail the result")
	}
}

func TestAPIValidator_FindOrphans(t *testing.T) {
	actx := apiFixture(t)

	declared := map[string]bool{
		"GET /api/memories":  true,
		"POST /api/memories": true,
	}
	res := NewAPIValidator(actx, DefaultOptions()).FindOrphans(declared)

	if got := issuesOfSeverity(res.Issues, models.SeverityError); len(got) != 0 {
		t.Fatalf("orphans must never be errors, got %v", got)
	}
	if got := issuesOfSeverity(res.Issues, models.SeverityWarning); len(got) != 0 {
		t.Fatalf("orphans must never be warnings, got %v", got)
	}
	infos := issuesOfSeverity(res.Issues, models.SeverityInfo)
	if len(infos) != 2 { // GET /api/y and GET /api/health-data
		t.Fatalf("expected two orphan infos, got %d: %v", len(infos), infos)
	}
	if !res.Passed {
		t.Error("orphan-only results must pass")
	}
}

func TestDeclaredEndpointKeys_BothShapes(t *testing.T) {
	m := &sysmap.SystemMap{
		Name: "fixture",
		APIs: []sysmap.APIEndpoint{{Method: "get", Path: "/api/a"}},
		FeatureGroups: map[string]sysmap.FeatureGroup{
			"core": {
				Name: "core",
				Features: map[string]sysmap.Feature{
					"thing": {
						Name:  "thing",
						Group: "core",
						APIIntegration: &sysmap.APIIntegration{
							Endpoints: []string{"POST /api/b", "/api/c"},
						},
					},
				},
			},
		},
	}

	keys := DeclaredEndpointKeys(m)
	want := []string{"GET /api/a", "GET /api/c", "POST /api/b"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
