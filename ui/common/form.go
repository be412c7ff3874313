package common

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Field describes one input of a Form.
type Field struct {
	Label       string
	Placeholder string
	CharLimit   int
	Secret      bool
}

// Form is a vertical list of text inputs with one focused at a time.
type Form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

func NewForm(fields ...Field) Form {
	f := Form{}
	for i, field := range fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = field.CharLimit
		ti.Width = 40
		if field.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		if i == 0 {
			ti.Focus()
		}
		f.labels = append(f.labels, field.Label)
		f.inputs = append(f.inputs, ti)
	}
	return f
}

// Next moves focus down and reports whether focus was on the last field.
func (f Form) Next() (Form, bool) {
	if f.focus == len(f.inputs)-1 {
		return f, true
	}
	return f.setFocus(f.focus + 1), false
}

func (f Form) Prev() Form {
	if f.focus == 0 {
		return f
	}
	return f.setFocus(f.focus - 1)
}

func (f Form) setFocus(i int) Form {
	f.inputs[f.focus].Blur()
	f.focus = i
	f.inputs[f.focus].Focus()
	return f
}

func (f Form) Focused() int {
	return f.focus
}

// Update forwards msg to the focused input.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f Form) Value(i int) string {
	return f.inputs[i].Value()
}

func (f Form) SetValue(i int, v string) Form {
	f.inputs[i].SetValue(v)
	return f
}

func (f Form) View() string {
	var s strings.Builder
	for i, in := range f.inputs {
		label := f.labels[i]
		if i == f.focus {
			label = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_MAGENTA)).Render(label)
		}
		s.WriteString(label)
		s.WriteString("\n")
		s.WriteString(in.View())
		s.WriteString("\n\n")
	}
	return s.String()
}
