//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/report"
	"github.com/stephabauva/archdrift/internal/sysmap"
	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/pkg/models"
)

// writeFile writes one fixture file, creating parent directories.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// writeSources lays out a small project: an app importing two
// components, a hook, and a route file registering three endpoints.
func writeSources(t *testing.T, root string) {
	t.Helper()

	writeFile(t, root, "src/App.tsx", `import { MemoryList } from './components/MemoryList';
import { Sidebar } from './components/Sidebar';

export default function App() {
  return (<MemoryList />);
}
`)
	writeFile(t, root, "src/components/MemoryList.tsx", `import { useMemories } from '../hooks/useMemories';

export function MemoryList() {
  const memories = useMemories();
  return (<ul>{memories}</ul>);
}
`)
	writeFile(t, root, "src/components/Sidebar.tsx", `export function Sidebar() {
  return (<nav />);
}
`)
	writeFile(t, root, "src/hooks/useMemories.ts", `export function useMemories() {
  return [];
}
`)
	writeFile(t, root, "server/routes/memories.ts", `app.get('/api/memories', listMemories);
app.post('/api/memories', createMemory);
app.get('/api/health', healthCheck);
`)
}

// audit runs the real pipeline over root: scan, discover, load,
// validate, report.
func audit(t *testing.T, root string) report.Report {
	t.Helper()

	scanner := codebase.NewScanner(root, codebase.NewRegexExtractor())
	cb, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	dir, err := sysmap.FindMapsDir(root)
	if err != nil {
		t.Fatalf("find maps dir: %v", err)
	}
	paths, err := sysmap.Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	var docs []*sysmap.SystemMap
	for _, p := range paths {
		m, err := sysmap.LoadFile(p)
		if err != nil {
			t.Fatalf("load %s: %v", p, err)
		}
		docs = append(docs, m)
	}

	orch := validation.NewOrchestrator(validation.NewAuditContext(root, cb), validation.DefaultOptions())
	return report.New(root, orch.Run(context.Background(), docs))
}

func hasIssue(issues []models.ValidationIssue, typ models.IssueType, sev models.Severity, location string) bool {
	for _, issue := range issues {
		if issue.Type == typ && issue.Severity == sev && issue.Location == location {
			return true
		}
	}
	return false
}

// TestAuditDetectsDrift checks a map that disagrees with the code in
// three known ways: a component that exists nowhere, a component
// declared at the wrong path, and an endpoint nothing implements. The
// two implemented-but-undeclared endpoints must surface as orphans.
func TestAuditDetectsDrift(t *testing.T) {
	root := t.TempDir()
	writeSources(t, root)
	writeFile(t, root, ".system-maps/core.json", `{
  "name": "core",
  "components": [
    {"name": "MemoryList", "path": "src/components/MemoryList.tsx", "type": "component", "dependencies": ["useMemories"]},
    {"name": "Sidebar", "path": "src/ui/Sidebar.tsx"},
    {"name": "GhostWidget", "path": "src/components/GhostWidget.tsx"}
  ],
  "apis": [
    {"method": "GET", "path": "/api/memories", "handlerFile": "server/routes/memories.ts"},
    {"method": "GET", "path": "/api/analytics/export"}
  ]
}
`)

	rep := audit(t, root)

	if rep.Summary.Passed {
		t.Error("expected the drifted project to fail the audit")
	}
	if rep.Summary.Documents != 1 {
		t.Fatalf("expected 1 document, got %d", rep.Summary.Documents)
	}
	if rep.Summary.Errors != 2 || rep.Summary.Warnings != 1 || rep.Summary.Infos != 2 {
		t.Errorf("expected 2 errors, 1 warning, 2 infos; got %d, %d, %d",
			rep.Summary.Errors, rep.Summary.Warnings, rep.Summary.Infos)
	}

	issues := rep.Documents[0].Result.Issues
	if !hasIssue(issues, models.IssueMissingComponent, models.SeverityError, "GhostWidget") {
		t.Error("expected an error for the component that exists nowhere")
	}
	if !hasIssue(issues, models.IssueAPIMismatch, models.SeverityError, "GET /api/analytics/export") {
		t.Error("expected an error for the unimplemented endpoint")
	}
	if !hasIssue(issues, models.IssueMissingComponent, models.SeverityWarning, "Sidebar") {
		t.Error("expected a warning for the component declared at the wrong path")
	}

	if !hasIssue(rep.Orphans, models.IssueAPIMismatch, models.SeverityInfo, "GET /api/health") {
		t.Error("expected an orphan finding for the health endpoint")
	}
	if !hasIssue(rep.Orphans, models.IssueAPIMismatch, models.SeverityInfo, "POST /api/memories") {
		t.Error("expected an orphan finding for the undocumented mutation")
	}
}

// TestAuditPassesWhenMapMatches loads the map from YAML and declares
// exactly what the code implements; the audit must pass with no
// findings at all.
func TestAuditPassesWhenMapMatches(t *testing.T) {
	root := t.TempDir()
	writeSources(t, root)
	writeFile(t, root, ".system-maps/core.yaml", `name: core
components:
  - name: MemoryList
    path: src/components/MemoryList.tsx
    type: component
    dependencies: [useMemories]
  - name: Sidebar
    path: src/components/Sidebar.tsx
apis:
  - method: GET
    path: /api/memories
    handlerFile: server/routes/memories.ts
  - method: POST
    path: /api/memories
    handlerFile: server/routes/memories.ts
  - method: GET
    path: /api/health
    handlerFile: server/routes/memories.ts
`)

	rep := audit(t, root)

	if !rep.Summary.Passed {
		t.Errorf("expected the audit to pass, got issues: %+v", rep.Documents[0].Result.Issues)
	}
	if rep.Summary.Errors != 0 || rep.Summary.Warnings != 0 || rep.Summary.Infos != 0 {
		t.Errorf("expected no findings; got %d errors, %d warnings, %d infos",
			rep.Summary.Errors, rep.Summary.Warnings, rep.Summary.Infos)
	}
	if len(rep.Orphans) != 0 {
		t.Errorf("expected no orphans, got %+v", rep.Orphans)
	}
}
