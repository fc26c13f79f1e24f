package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"signaldash/internal/settings"
)

var focusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// form edits the settings document, one text input per known field. Keys
// the form does not know are kept in base and saved back untouched.
type form struct {
	base   settings.Document
	inputs []textinput.Model
	cursor int
}

func newForm(doc settings.Document) form {
	f := form{inputs: make([]textinput.Model, len(settings.Fields))}
	for i, fd := range settings.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 40
		if fd.Kind == settings.KindSecret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		f.inputs[i] = ti
	}
	f.reset(doc)
	return f
}

// reset loads doc into the inputs.
func (f *form) reset(doc settings.Document) {
	f.base = settings.Merge(doc, nil)
	for i, fd := range settings.Fields {
		f.inputs[i].SetValue(settings.FormValue(doc, fd.Key))
	}
}

// document returns base with the edited text of every field applied.
func (f form) document() settings.Document {
	doc := f.base
	for i, fd := range settings.Fields {
		doc = settings.Set(doc, fd.Key, f.inputs[i].Value())
	}
	return doc
}

func (f *form) focus() tea.Cmd {
	return f.inputs[f.cursor].Focus()
}

func (f *form) blur() {
	f.inputs[f.cursor].Blur()
}

// move shifts focus by delta, wrapping around.
func (f *form) move(delta int) tea.Cmd {
	f.inputs[f.cursor].Blur()
	n := len(f.inputs)
	f.cursor = ((f.cursor+delta)%n + n) % n
	return f.inputs[f.cursor].Focus()
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.cursor], cmd = f.inputs[f.cursor].Update(msg)
	return f, cmd
}

func (f form) view(height int) string {
	width := 0
	for _, fd := range settings.Fields {
		width = max(width, len(fd.Label))
	}

	lines := []string{""}
	for i, fd := range settings.Fields {
		label := padOrTrunc(fd.Label, width)
		if i == f.cursor {
			lines = append(lines, fmt.Sprintf("%s %s  %s", focusStyle.Render(">"), focusStyle.Render(label), f.inputs[i].View()))
		} else {
			lines = append(lines, fmt.Sprintf("  %s  %s", labelStyle.Render(label), f.inputs[i].View()))
		}
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
