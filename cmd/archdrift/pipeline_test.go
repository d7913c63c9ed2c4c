package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stephabauva/archdrift/internal/codebase"
	"github.com/stephabauva/archdrift/internal/config"
	"github.com/stephabauva/archdrift/pkg/models"
)

const validMapJSON = `{
	"name": "core",
	"components": [{"name": "Widget", "path": "src/Widget.tsx", "type": "component"}]
}`

func writeFixtureMap(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveMapsDirUsesConfigured(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, ".system-maps")
	if err := os.MkdirAll(want, 0755); err != nil {
		t.Fatal(err)
	}

	p := &auditPipeline{root: root, cfg: config.Default()}
	dir, err := p.resolveMapsDir()
	if err != nil {
		t.Fatalf("resolveMapsDir: %v", err)
	}
	if dir != want {
		t.Errorf("expected %s, got %s", want, dir)
	}
}

func TestResolveMapsDirFallsBackToDiscovery(t *testing.T) {
	root := t.TempDir()
	want := filepath.Join(root, "system-maps")
	if err := os.MkdirAll(want, 0755); err != nil {
		t.Fatal(err)
	}

	// The configured .system-maps does not exist, so discovery kicks in.
	p := &auditPipeline{root: root, cfg: config.Default()}
	dir, err := p.resolveMapsDir()
	if err != nil {
		t.Fatalf("resolveMapsDir: %v", err)
	}
	if dir != want {
		t.Errorf("expected %s, got %s", want, dir)
	}
}

func TestResolveMapsDirFlagWins(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".system-maps"), 0755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "docs", "maps")
	if err := os.MkdirAll(want, 0755); err != nil {
		t.Fatal(err)
	}

	p := &auditPipeline{root: root, cfg: config.Default(), mapsDir: "docs/maps"}
	dir, err := p.resolveMapsDir()
	if err != nil {
		t.Fatalf("resolveMapsDir: %v", err)
	}
	if dir != want {
		t.Errorf("expected %s, got %s", want, dir)
	}
}

func TestResolveMapsDirMissingFlagPath(t *testing.T) {
	root := t.TempDir()
	p := &auditPipeline{root: root, cfg: config.Default(), mapsDir: "nope"}
	if _, err := p.resolveMapsDir(); err == nil {
		t.Error("expected error for missing maps path")
	}
}

func TestLoadDocumentsToleratesBadDocument(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".system-maps")
	good := writeFixtureMap(t, dir, "core.json", validMapJSON)
	bad := writeFixtureMap(t, dir, "broken.json", "{not json")

	p := &auditPipeline{root: root, cfg: config.Default()}
	docs, failures := p.loadDocuments([]string{bad, good})

	if len(docs) != 1 {
		t.Fatalf("expected 1 loaded document, got %d", len(docs))
	}
	if docs[0].Path != ".system-maps/core.json" {
		t.Errorf("expected root-relative path, got %q", docs[0].Path)
	}

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	f := failures[0]
	if f.MapPath != ".system-maps/broken.json" {
		t.Errorf("expected failure labeled with relative path, got %q", f.MapPath)
	}
	if f.MapName != "broken" {
		t.Errorf("expected failure named after the file, got %q", f.MapName)
	}
	if f.Result.Passed {
		t.Error("expected a failed result for the bad document")
	}
	if len(f.Result.Issues) != 1 || f.Result.Issues[0].Severity != models.SeverityError {
		t.Errorf("expected a single error issue, got %+v", f.Result.Issues)
	}
}

func TestRelPath(t *testing.T) {
	p := &auditPipeline{root: "/srv/app"}
	tests := []struct {
		path string
		want string
	}{
		{"/srv/app/.system-maps/core.json", ".system-maps/core.json"},
		{"/srv/app/docs/maps/auth.yaml", "docs/maps/auth.yaml"},
		{"/srv/elsewhere/core.json", "/srv/elsewhere/core.json"},
	}
	for _, tt := range tests {
		if got := p.relPath(tt.path); got != tt.want {
			t.Errorf("relPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDocStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"maps/core.json", "core"},
		{"maps/user-flows.yaml", "user-flows"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := docStem(tt.path); got != tt.want {
			t.Errorf("docStem(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBuildIndexSummary(t *testing.T) {
	cb := codebase.NewParsedCodebase()
	cb.Components["src/App.tsx"] = codebase.ComponentInfo{Type: "component"}
	cb.Components["src/pages/Home.tsx"] = codebase.ComponentInfo{Type: "page"}
	cb.Components["src/pages/About.tsx"] = codebase.ComponentInfo{Type: "page"}
	cb.Components["src/hooks/useMemories.ts"] = codebase.ComponentInfo{Type: "hook"}
	cb.APIs[codebase.EndpointKey("GET", "/api/memories")] = codebase.APIInfo{
		Method:   "GET",
		Endpoint: "/api/memories",
	}

	s := buildIndexSummary("/srv/app", cb)
	if s.Files != 4 {
		t.Errorf("expected 4 files, got %d", s.Files)
	}
	if s.Routes != 1 {
		t.Errorf("expected 1 route, got %d", s.Routes)
	}
	if s.ByType["page"] != 2 || s.ByType["component"] != 1 || s.ByType["hook"] != 1 {
		t.Errorf("unexpected type breakdown: %v", s.ByType)
	}
}
