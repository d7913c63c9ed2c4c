package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stephabauva/archdrift/internal/report"
	"github.com/stephabauva/archdrift/internal/validation"
	"github.com/stephabauva/archdrift/pkg/models"
)

func fixtureReport() report.Report {
	return report.Report{
		RunID: "5f0c6a2e-8f4e-4be6-9f7d-2f22c4b1f9aa",
		Root:  "/srv/app",
		Documents: []validation.DocumentResult{
			{
				MapPath: "maps/core.json",
				MapName: "core",
				Result: models.ValidationResult{
					Issues: []models.ValidationIssue{
						{
							Type:     models.IssueMissingComponent,
							Severity: models.SeverityError,
							Message:  "component file missing",
							Location: "GhostWidget",
						},
						{
							Type:     models.IssueCacheInvalidationMissing,
							Severity: models.SeverityWarning,
							Message:  "mutation does not invalidate cached reads",
							Location: "memories",
						},
					},
				},
			},
		},
		Orphans: []models.ValidationIssue{
			{
				Type:     models.IssueAPIMismatch,
				Severity: models.SeverityInfo,
				Message:  "endpoint not declared in any map",
				Location: "GET /api/health",
			},
		},
		Summary: report.Summary{
			Documents: 1,
			Errors:    1,
			Warnings:  1,
			Infos:     1,
		},
	}
}

// press feeds key messages through Update and returns the updated
// model. Named keys map to their key types, anything else is typed as
// runes.
func press(t *testing.T, m tea.Model, keys ...string) *Browser {
	t.Helper()
	for _, key := range keys {
		var msg tea.KeyMsg
		switch key {
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "home":
			msg = tea.KeyMsg{Type: tea.KeyHome}
		case "end":
			msg = tea.KeyMsg{Type: tea.KeyEnd}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		m, _ = m.Update(msg)
	}
	b, ok := m.(*Browser)
	if !ok {
		t.Fatalf("expected *Browser, got %T", m)
	}
	return b
}

func TestBrowser_FlattensReport(t *testing.T) {
	b := NewBrowser(fixtureReport())

	if len(b.items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(b.items))
	}
	if len(b.visible) != 3 {
		t.Errorf("expected all items visible, got %d", len(b.visible))
	}
	if b.items[0].Document != "maps/core.json" {
		t.Errorf("expected document label from map path, got %q", b.items[0].Document)
	}
	if b.items[0].Issue.Location != "GhostWidget" {
		t.Errorf("expected document issues before orphans, got %q", b.items[0].Issue.Location)
	}
	if b.items[2].Document != "" {
		t.Errorf("expected orphan without document, got %q", b.items[2].Document)
	}
	if b.items[2].Issue.Type != models.IssueAPIMismatch {
		t.Errorf("expected orphan issue last, got %q", b.items[2].Issue.Type)
	}
}

func TestBrowser_Update_SeverityTabs(t *testing.T) {
	tests := []struct {
		key      string
		tab      int
		visible  int
		severity models.Severity
	}{
		{"e", TabIndexErrors, 1, models.SeverityError},
		{"w", TabIndexWarnings, 1, models.SeverityWarning},
		{"i", TabIndexInfos, 1, models.SeverityInfo},
	}

	for _, tt := range tests {
		b := press(t, NewBrowser(fixtureReport()), tt.key)
		if b.tabs.Active() != tt.tab {
			t.Errorf("key %q: expected tab %d, got %d", tt.key, tt.tab, b.tabs.Active())
		}
		if len(b.visible) != tt.visible {
			t.Fatalf("key %q: expected %d visible, got %d", tt.key, tt.visible, len(b.visible))
		}
		if got := b.items[b.visible[0]].Issue.Severity; got != tt.severity {
			t.Errorf("key %q: expected severity %q, got %q", tt.key, tt.severity, got)
		}
	}

	b := press(t, NewBrowser(fixtureReport()), "e", "a")
	if len(b.visible) != 3 {
		t.Errorf("expected all findings back on the All tab, got %d", len(b.visible))
	}
}

func TestBrowser_Update_FuzzyFilter(t *testing.T) {
	b := press(t, NewBrowser(fixtureReport()), "/", "ghost")

	if !b.filter.Focused() {
		t.Error("expected filter focused after /")
	}
	if len(b.visible) != 1 {
		t.Fatalf("expected 1 match for %q, got %d", "ghost", len(b.visible))
	}
	if b.items[b.visible[0]].Issue.Location != "GhostWidget" {
		t.Errorf("expected GhostWidget match, got %q", b.items[b.visible[0]].Issue.Location)
	}

	b = press(t, b, "esc")
	if b.filter.Focused() {
		t.Error("expected esc to blur the filter")
	}
	if len(b.visible) != 1 {
		t.Errorf("expected blur to keep the query applied, got %d visible", len(b.visible))
	}

	b = press(t, b, "esc")
	if b.filter.Value() != "" {
		t.Errorf("expected second esc to clear the query, got %q", b.filter.Value())
	}
	if len(b.visible) != 3 {
		t.Errorf("expected all findings back after clearing, got %d", len(b.visible))
	}
}

func TestBrowser_Update_Navigation(t *testing.T) {
	b := press(t, NewBrowser(fixtureReport()), "down", "down", "down")
	if b.selected != 2 {
		t.Errorf("expected selection clamped to last finding, got %d", b.selected)
	}

	b = press(t, b, "up")
	if b.selected != 1 {
		t.Errorf("expected selection 1 after up, got %d", b.selected)
	}

	b = press(t, b, "home")
	if b.selected != 0 {
		t.Errorf("expected home to select first, got %d", b.selected)
	}

	b = press(t, b, "end")
	if b.selected != 2 {
		t.Errorf("expected end to select last, got %d", b.selected)
	}

	// Narrowing the list pulls the selection back into range.
	b = press(t, b, "/", "ghost")
	if b.selected != 0 {
		t.Errorf("expected selection clamped after narrowing, got %d", b.selected)
	}
}

func TestBrowser_Update_Quit(t *testing.T) {
	model, cmd := NewBrowser(fixtureReport()).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	b := model.(*Browser)
	if !b.quitting {
		t.Error("expected q to set quitting")
	}
	if cmd == nil {
		t.Error("expected q to return a quit command")
	}
	if b.View() != "" {
		t.Error("expected empty view while quitting")
	}

	// Ctrl+C quits even while the filter is focused.
	focused := press(t, NewBrowser(fixtureReport()), "/")
	model, cmd = focused.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	b = model.(*Browser)
	if !b.quitting {
		t.Error("expected ctrl+c to set quitting while filtering")
	}
	if cmd == nil {
		t.Error("expected ctrl+c to return a quit command")
	}
}

func TestBrowser_Update_WindowSize(t *testing.T) {
	model, _ := NewBrowser(fixtureReport()).Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	b := model.(*Browser)
	if b.width != 80 || b.height != 24 {
		t.Errorf("expected 80x24, got %dx%d", b.width, b.height)
	}
}

func TestBrowser_View(t *testing.T) {
	b := NewBrowser(fixtureReport())
	view := b.View()

	for _, want := range []string{
		"Architecture audit",
		"✗ FAIL",
		"1 errors, 1 warnings, 1 infos",
		"GhostWidget",
		"component file missing",
		"1/3",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	b = press(t, b, "/", "zzzqx")
	if view := b.View(); !strings.Contains(view, "no findings match") {
		t.Error("expected empty-list placeholder for a query with no matches")
	}
}
