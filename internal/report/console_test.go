package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestConsoleRenderer_Render(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	r := NewConsoleRenderer(&buf)
	r.Render(New("/srv/app", fixtureRun()))

	out := buf.String()
	for _, want := range []string{
		"Architecture audit of /srv/app",
		"✗ FAIL maps/core.json (core)",
		"✓ PASS maps/health.json (health)",
		"✗ error   [missing-component]",
		"location: GhostWidget",
		"fix: import it from a page or route",
		"Features:",
		"? memories: unverified (score 1.00)",
		"Orphaned endpoints:",
		"ℹ info    [api-mismatch]",
		"✗ FAIL  1 errors, 1 warnings, 1 infos",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q\noutput:\n%s", want, out)
		}
	}
}

func TestConsoleRenderer_VerboseShowsScores(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	r := NewConsoleRenderer(&buf)
	r.SetVerbose(true)
	r.Render(New("/srv/app", fixtureRun()))

	out := buf.String()
	for _, want := range []string{
		"component MemoriesPage: 1.00",
		"api POST /api/memories: 1.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose output missing %q\noutput:\n%s", want, out)
		}
	}
}
