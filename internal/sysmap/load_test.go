package sysmap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const standardDoc = `{
  "name": "memories",
  "components": [
    {"name": "MemoryList", "path": "src/components/MemoryList.tsx", "type": "component",
     "dependencies": ["MemoryCard"]},
    {"name": "MemoryCard", "path": "src/components/MemoryCard.tsx", "type": "component"}
  ],
  "apis": [
    {"method": "get", "path": "/api/memories", "handlerFile": "server/routes/memories.ts",
     "requestSchema": {}, "responseSchema": {"items": "Memory[]"}}
  ],
  "flows": [
    {"name": "browse memories", "steps": [
      {"step": "open memories page and navigate to list", "component": "MemoryList"},
      {"step": "submit search to complete lookup", "api": "GET /api/memories", "errorHandling": "toast on error"}
    ]}
  ]
}`

const featureGroupDoc = `{
  "name": "wellness",
  "tableOfContents": {"groups": ["tracking"]},
  "lastUpdated": "2025-06-01",
  "dependencies": ["core"],
  "featureGroups": {
    "tracking": {
      "description": "Health tracking",
      "features": {
        "metrics": {
          "description": "Record health metrics",
          "userFlow": ["open dashboard and navigate to metrics", "submit new reading to complete entry"],
          "components": ["MetricsPanel", "MetricForm"],
          "apiIntegration": {
            "endpoints": ["POST /api/health-data"],
            "cacheDependencies": {
              "invalidates": ["/api/health-data", "/api/health-data/overview"],
              "refreshesComponents": ["MetricsPanel"],
              "missingInvalidations": []
            }
          }
        }
      }
    }
  },
  "integrationStatus": {
    "metrics": {"status": "active", "lastVerified": "2025-05-20", "knownIssues": []}
  }
}`

func TestParse_StandardDocument(t *testing.T) {
	m, err := Parse("memories", []byte(standardDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if m.Format != FormatStandard {
		t.Errorf("Format = %q, want standard", m.Format)
	}
	if m.Name != "memories" {
		t.Errorf("Name = %q", m.Name)
	}
	if len(m.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(m.Components))
	}
	list, ok := m.Components["MemoryList"]
	if !ok {
		t.Fatal("MemoryList not normalized")
	}
	if list.Path != "src/components/MemoryList.tsx" {
		t.Errorf("MemoryList.Path = %q", list.Path)
	}
	if len(list.Dependencies) != 1 || list.Dependencies[0] != "MemoryCard" {
		t.Errorf("MemoryList.Dependencies = %v", list.Dependencies)
	}

	if len(m.APIs) != 1 {
		t.Fatalf("apis = %d, want 1", len(m.APIs))
	}
	if m.APIs[0].Method != "GET" {
		t.Errorf("method = %q, want upper-cased GET", m.APIs[0].Method)
	}

	if len(m.Flows) != 1 || len(m.Flows[0].Steps) != 2 {
		t.Fatalf("flows not normalized: %+v", m.Flows)
	}
	second := m.Flows[0].Steps[1]
	if second.API != "GET /api/memories" || second.ErrorHandling == "" {
		t.Errorf("step fields lost: %+v", second)
	}
}

func TestParse_ComponentMapShape(t *testing.T) {
	doc := `{
	  "components": {
	    "MemoryList": {"path": "src/components/MemoryList.tsx"},
	    "Named": {"name": "Named", "path": "src/Named.tsx"}
	  }
	}`

	m, err := Parse("doc", []byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(m.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(m.Components))
	}
	if m.Components["MemoryList"].Name != "MemoryList" {
		t.Error("map key should backfill the component name")
	}
}

func TestParse_ComponentStringEntries(t *testing.T) {
	doc := `{"components": ["MemoryList", {"name": "MemoryCard", "path": "src/MemoryCard.tsx"}]}`

	m, err := Parse("doc", []byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, ok := m.Components["MemoryList"]; !ok {
		t.Error("bare string component entry should normalize to a named component")
	}
}

func TestParse_FeatureGroupDocument(t *testing.T) {
	m, err := Parse("wellness", []byte(featureGroupDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if m.Format != FormatFeatureGroups {
		t.Errorf("Format = %q, want feature-groups", m.Format)
	}

	features := m.Features()
	if len(features) != 1 {
		t.Fatalf("features = %d, want 1", len(features))
	}
	feature := features[0]
	if feature.Name != "metrics" || feature.Group != "tracking" {
		t.Errorf("feature identity = %s/%s", feature.Group, feature.Name)
	}
	if feature.APIIntegration == nil || feature.APIIntegration.CacheDependencies == nil {
		t.Fatal("cache dependencies not normalized")
	}
	if len(feature.APIIntegration.CacheDependencies.Invalidates) != 2 {
		t.Errorf("invalidates = %v", feature.APIIntegration.CacheDependencies.Invalidates)
	}

	status, ok := m.StatusOf("metrics")
	if !ok || status.Status != FeatureActive {
		t.Errorf("StatusOf(metrics) = %+v, %v", status, ok)
	}

	// The string userFlow becomes a structured flow.
	if len(m.Flows) != 1 {
		t.Fatalf("flows = %d, want 1 synthesized from userFlow", len(m.Flows))
	}
	if m.Flows[0].Name != "tracking/metrics user flow" {
		t.Errorf("flow name = %q", m.Flows[0].Name)
	}
	if len(m.Flows[0].Steps) != 2 {
		t.Errorf("flow steps = %d, want 2", len(m.Flows[0].Steps))
	}
}

func TestParse_FeatureGroupMissingKeys(t *testing.T) {
	doc := `{"featureGroups": {"g": {"features": {}}}}`

	_, err := Parse("broken", []byte(doc))
	if err == nil {
		t.Fatal("Parse() should fail when featureGroups lacks companion keys")
	}
	for _, key := range []string{"tableOfContents", "integrationStatus", "lastUpdated", "dependencies"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name missing key %q: %v", key, err)
		}
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	if _, err := Parse("empty", []byte(`{}`)); err == nil {
		t.Fatal("Parse() should reject a document with no recognizable shape")
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if _, err := Parse("bad", []byte(`{"components": [`)); err == nil {
		t.Fatal("Parse() should reject malformed JSON")
	}
}

func TestParse_DeclaredComponentSet(t *testing.T) {
	m, err := Parse("wellness", []byte(featureGroupDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	set := m.DeclaredComponentSet()
	for _, name := range []string{"MetricsPanel", "MetricForm"} {
		if !set[name] {
			t.Errorf("declared component set missing %q", name)
		}
	}
}

func TestLoadFile_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "memories.map.json")
	if err := os.WriteFile(path, []byte(standardDoc), 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if m.Path == "" {
		t.Error("Path should record the source file")
	}
}

func TestLoadFile_YAML(t *testing.T) {
	yamlDoc := `
name: memories
components:
  - name: MemoryList
    path: src/components/MemoryList.tsx
apis:
  - method: get
    path: /api/memories
`
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "memories.yaml")
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if m.Format != FormatStandard {
		t.Errorf("Format = %q", m.Format)
	}
	if _, ok := m.Components["MemoryList"]; !ok {
		t.Error("YAML components not normalized")
	}
	if m.APIs[0].Method != "GET" {
		t.Errorf("YAML method = %q", m.APIs[0].Method)
	}
}

func TestLoadFile_NameFallsBackToStem(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "health-tracking.json")
	if err := os.WriteFile(path, []byte(`{"components": [{"name": "A", "path": "src/A.tsx"}]}`), 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if m.Name != "health-tracking" {
		t.Errorf("Name = %q, want file stem", m.Name)
	}
}

func TestLoadFile_OversizedDocument(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "huge.json")
	padding := strings.Repeat(" ", MaxDocumentSize+1)
	if err := os.WriteFile(path, []byte(padding), 0644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile() should reject oversized documents")
	}
}
