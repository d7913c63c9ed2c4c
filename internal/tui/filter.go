package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Filter is the fuzzy query field above the issue list.
type Filter struct {
	input   textinput.Model
	focused bool
}

// NewFilter creates an unfocused filter field.
func NewFilter() *Filter {
	ti := textinput.New()
	ti.Placeholder = "fuzzy filter..."
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Width = 40

	return &Filter{input: ti}
}

// Focus puts the keyboard into the filter.
func (f *Filter) Focus() tea.Cmd {
	f.focused = true
	return f.input.Focus()
}

// Blur returns the keyboard to the list.
func (f *Filter) Blur() {
	f.focused = false
	f.input.Blur()
}

// Focused reports whether keystrokes go to the filter.
func (f *Filter) Focused() bool {
	return f.focused
}

// Value returns the trimmed query.
func (f *Filter) Value() string {
	return strings.TrimSpace(f.input.Value())
}

// Reset clears the query.
func (f *Filter) Reset() {
	f.input.Reset()
}

// SetWidth sizes the input to the terminal.
func (f *Filter) SetWidth(width int) {
	if width > 8 {
		f.input.Width = width - 4
	}
}

// Update feeds a message to the underlying text input.
func (f *Filter) Update(msg tea.Msg) (*Filter, tea.Cmd) {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the filter line, or a hint when it is idle.
func (f *Filter) View() string {
	if !f.focused && f.Value() == "" {
		return dimStyle.Render("press / to filter")
	}
	return f.input.View()
}
