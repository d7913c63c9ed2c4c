package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stephabauva/archdrift/pkg/models"
)

func TestTabBar_Update_Keys(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"e", TabIndexErrors},
		{"w", TabIndexWarnings},
		{"i", TabIndexInfos},
		{"a", TabIndexAll},
	}

	for _, tt := range tests {
		tb := NewTabBar()
		tb.SetActive(TabIndexWarnings)
		tb, _ = tb.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.key)})
		if tb.Active() != tt.want {
			t.Errorf("key %q: expected tab %d, got %d", tt.key, tt.want, tb.Active())
		}
	}
}

func TestTabBar_Update_Cycle(t *testing.T) {
	tb := NewTabBar()
	tb, _ = tb.Update(tea.KeyMsg{Type: tea.KeyTab})
	if tb.Active() != TabIndexErrors {
		t.Errorf("expected tab to advance, got %d", tb.Active())
	}

	tb.SetActive(TabIndexInfos)
	tb, _ = tb.Update(tea.KeyMsg{Type: tea.KeyTab})
	if tb.Active() != TabIndexAll {
		t.Errorf("expected tab to wrap around, got %d", tb.Active())
	}

	tb, _ = tb.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if tb.Active() != TabIndexInfos {
		t.Errorf("expected shift+tab to wrap back, got %d", tb.Active())
	}
}

func TestTabBar_Severity(t *testing.T) {
	tests := []struct {
		index int
		want  models.Severity
	}{
		{TabIndexAll, ""},
		{TabIndexErrors, models.SeverityError},
		{TabIndexWarnings, models.SeverityWarning},
		{TabIndexInfos, models.SeverityInfo},
	}

	for _, tt := range tests {
		tb := NewTabBar()
		tb.SetActive(tt.index)
		if got := tb.Severity(); got != tt.want {
			t.Errorf("tab %d: expected severity %q, got %q", tt.index, tt.want, got)
		}
	}
}

func TestTabBar_SetActive_Clamps(t *testing.T) {
	tb := NewTabBar()
	tb.SetActive(-1)
	if tb.Active() != TabIndexAll {
		t.Errorf("expected negative index clamped to first tab, got %d", tb.Active())
	}
	tb.SetActive(99)
	if tb.Active() != TabIndexInfos {
		t.Errorf("expected out-of-range index clamped to last tab, got %d", tb.Active())
	}
}
