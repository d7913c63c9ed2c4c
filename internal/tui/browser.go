package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/stephabauva/archdrift/internal/report"
	"github.com/stephabauva/archdrift/pkg/models"
)

// Item is one finding row: an issue joined with the document that
// produced it. Orphan findings carry an empty document.
type Item struct {
	Document string
	Issue    models.ValidationIssue
}

// searchText is the haystack the fuzzy filter matches against.
func (it Item) searchText() string {
	return strings.Join([]string{
		it.Document,
		string(it.Issue.Type),
		it.Issue.Location,
		it.Issue.Message,
	}, " ")
}

// Browser is the bubbletea model over one finished report.
type Browser struct {
	report report.Report
	items  []Item

	tabs   TabBar
	filter *Filter

	// visible indexes into items after the tab and query filters.
	visible  []int
	selected int

	width    int
	height   int
	quitting bool
}

// NewBrowser flattens a report into the issue browser. Documents keep
// their path order and orphan findings come last, so the initial list
// matches the console rendering.
func NewBrowser(rep report.Report) *Browser {
	items := make([]Item, 0, 16)
	for _, doc := range rep.Documents {
		label := doc.MapPath
		if label == "" {
			label = doc.MapName
		}
		for _, issue := range doc.Result.Issues {
			items = append(items, Item{Document: label, Issue: issue})
		}
	}
	for _, issue := range rep.Orphans {
		items = append(items, Item{Issue: issue})
	}

	b := &Browser{
		report: rep,
		items:  items,
		tabs:   NewTabBar(),
		filter: NewFilter(),
		width:  100,
		height: 30,
	}
	b.recompute()
	return b
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if b.filter.Focused() {
			switch msg.String() {
			case "esc", "enter":
				b.filter.Blur()
				return b, nil
			case "ctrl+c":
				b.quitting = true
				return b, tea.Quit
			}
			var cmd tea.Cmd
			b.filter, cmd = b.filter.Update(msg)
			b.recompute()
			return b, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			b.quitting = true
			return b, tea.Quit
		case "/":
			return b, b.filter.Focus()
		case "esc":
			if b.filter.Value() != "" {
				b.filter.Reset()
				b.recompute()
			}
			return b, nil
		case "up", "k":
			if b.selected > 0 {
				b.selected--
			}
			return b, nil
		case "down", "j":
			if b.selected < len(b.visible)-1 {
				b.selected++
			}
			return b, nil
		case "home", "g":
			b.selected = 0
			return b, nil
		case "end", "G":
			if len(b.visible) > 0 {
				b.selected = len(b.visible) - 1
			}
			return b, nil
		}

		var cmd tea.Cmd
		b.tabs, cmd = b.tabs.Update(msg)
		b.recompute()
		return b, cmd

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.filter.SetWidth(msg.Width)
	}

	return b, nil
}

// View implements tea.Model.
func (b *Browser) View() string {
	if b.quitting {
		return ""
	}

	sections := []string{
		b.viewHeader(),
		b.tabs.View(),
		b.filter.View(),
		b.viewList(b.listHeight()),
		b.viewDetail(),
		b.viewFooter(),
	}
	return strings.Join(sections, "\n")
}

// recompute rebuilds the visible list from the active tab and query.
// The selection is clamped so it always points at a visible finding.
func (b *Browser) recompute() {
	allowed := b.tabs.Severity()
	idxs := make([]int, 0, len(b.items))
	for i, it := range b.items {
		if allowed != "" && it.Issue.Severity != allowed {
			continue
		}
		idxs = append(idxs, i)
	}

	if query := b.filter.Value(); query != "" && len(idxs) > 0 {
		texts := make([]string, len(idxs))
		for j, i := range idxs {
			texts[j] = b.items[i].searchText()
		}
		matches := fuzzy.Find(query, texts)
		ranked := make([]int, 0, len(matches))
		for _, m := range matches {
			ranked = append(ranked, idxs[m.Index])
		}
		idxs = ranked
	}

	b.visible = idxs
	if b.selected >= len(b.visible) {
		b.selected = len(b.visible) - 1
	}
	if b.selected < 0 {
		b.selected = 0
	}
}

// listHeight is the rows left for the list after the fixed chrome:
// header, tab bar, filter, detail pane, and footer.
func (b *Browser) listHeight() int {
	h := b.height - 14
	if h < 3 {
		h = 3
	}
	return h
}

// viewHeader renders the run summary line.
func (b *Browser) viewHeader() string {
	s := b.report.Summary
	status := errorStyle.Render("✗ FAIL")
	if s.Passed {
		status = passStyle.Render("✓ PASS")
	}
	counts := fmt.Sprintf("%d errors, %d warnings, %d infos", s.Errors, s.Warnings, s.Infos)
	return fmt.Sprintf("%s %s  %s  %s",
		titleStyle.Render("Architecture audit"), dimStyle.Render(b.report.Root), status, counts)
}

// viewList renders a window of the visible findings around the
// selection.
func (b *Browser) viewList(height int) string {
	if len(b.visible) == 0 {
		return dimStyle.Render("  no findings match")
	}

	start := 0
	if b.selected >= height {
		start = b.selected - height + 1
	}
	end := start + height
	if end > len(b.visible) {
		end = len(b.visible)
	}

	rows := make([]string, 0, end-start)
	for pos := start; pos < end; pos++ {
		rows = append(rows, b.renderRow(b.items[b.visible[pos]], pos == b.selected))
	}
	return strings.Join(rows, "\n")
}

// renderRow renders one finding line for the list.
func (b *Browser) renderRow(it Item, selected bool) string {
	sev := severityStyle(it.Issue.Severity).
		Render(fmt.Sprintf("%s %-7s", severityGlyph(it.Issue.Severity), string(it.Issue.Severity)))
	loc := it.Issue.Location
	if loc == "" {
		loc = "-"
	}

	marker := "  "
	if selected {
		marker = labelStyle.Render("> ")
	}
	return fmt.Sprintf("%s%s [%s] %s  %s",
		marker, sev, it.Issue.Type, loc, truncate(it.Issue.Message, b.messageBudget()))
}

// viewDetail renders the detail pane for the selected finding.
func (b *Browser) viewDetail() string {
	if len(b.visible) == 0 {
		return detailStyle.Width(b.paneWidth()).Render(dimStyle.Render("nothing selected"))
	}
	it := b.items[b.visible[b.selected]]

	head := severityStyle(it.Issue.Severity).
		Render(fmt.Sprintf("%s %s", severityGlyph(it.Issue.Severity), string(it.Issue.Severity)))
	lines := []string{fmt.Sprintf("%s  [%s]", head, it.Issue.Type)}
	if it.Document != "" {
		lines = append(lines, labelStyle.Render("document ")+it.Document)
	}
	if it.Issue.Location != "" {
		lines = append(lines, labelStyle.Render("location ")+it.Issue.Location)
	}
	lines = append(lines, labelStyle.Render("message  ")+it.Issue.Message)
	if it.Issue.Suggestion != "" {
		lines = append(lines, labelStyle.Render("fix      ")+it.Issue.Suggestion)
	}
	if len(it.Issue.Metadata) > 0 {
		keys := make([]string, 0, len(it.Issue.Metadata))
		for k := range it.Issue.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("%s: %v", k, it.Issue.Metadata[k])))
		}
	}
	return detailStyle.Width(b.paneWidth()).Render(strings.Join(lines, "\n"))
}

// viewFooter renders the position indicator and key help.
func (b *Browser) viewFooter() string {
	help := "a/e/w/i tabs · / filter · ↑/↓ move · q quit"
	if len(b.visible) == 0 {
		return dimStyle.Render(help)
	}
	return dimStyle.Render(fmt.Sprintf("%d/%d · %s", b.selected+1, len(b.visible), help))
}

// messageBudget is how many message characters fit on a list row after
// the severity, type, and location columns.
func (b *Browser) messageBudget() int {
	budget := b.width - 44
	if budget < 20 {
		budget = 20
	}
	return budget
}

// paneWidth sizes the detail pane to the terminal.
func (b *Browser) paneWidth() int {
	w := b.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

// truncate shortens s to maxLen characters, using an ellipsis when
// anything is cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Run opens the browser over a report and blocks until the user quits.
func Run(rep report.Report) error {
	p := tea.NewProgram(NewBrowser(rep), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
