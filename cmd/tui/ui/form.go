package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type field struct {
	label  string
	secret bool
	value  []rune
}

// form is the line editor behind the sign-in and sign-up screens.
type form struct {
	fields []field
	focus  int
}

func newForm(fields ...field) form {
	return form{fields: fields}
}

func (f *form) value(i int) string {
	return string(f.fields[i].value)
}

func (f *form) clear(i int) {
	f.fields[i].value = nil
}

func (f *form) reset() {
	for i := range f.fields {
		f.clear(i)
	}
	f.focus = 0
}

// update applies one key press. It reports true when enter is pressed on the
// last field.
func (f *form) update(msg tea.KeyMsg) bool {
	n := len(f.fields)
	cur := &f.fields[f.focus]

	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		f.focus = (f.focus + 1) % n
	case tea.KeyShiftTab, tea.KeyUp:
		f.focus = (f.focus + n - 1) % n
	case tea.KeyEnter:
		if f.focus < n-1 {
			f.focus++
			return false
		}
		return true
	case tea.KeyBackspace:
		if len(cur.value) > 0 {
			cur.value = cur.value[:len(cur.value)-1]
		}
	case tea.KeyCtrlU:
		cur.value = nil
	case tea.KeySpace:
		cur.value = append(cur.value, ' ')
	case tea.KeyRunes:
		cur.value = append(cur.value, msg.Runes...)
	}
	return false
}

func (f *form) view() string {
	rows := make([]string, 0, len(f.fields))
	for i, fl := range f.fields {
		text := string(fl.value)
		if fl.secret {
			text = strings.Repeat("•", len(fl.value))
		}

		style := inputStyle
		if i == f.focus {
			style = focusedInputStyle
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, labelStyle.Render(fl.label), style.Render(text)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
