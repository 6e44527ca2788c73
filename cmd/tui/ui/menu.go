package ui

import (
	"strings"

	"github.com/Varun5711/tinyauth/cmd/tui/client"
	tea "github.com/charmbracelet/bubbletea"
)

type menuAction int

const (
	actionProfile menuAction = iota
	actionSignOut
)

type menuItem struct {
	label  string
	action menuAction
}

type MenuModel struct {
	cursor int
	items  []menuItem
}

func NewMenuModel() *MenuModel {
	return &MenuModel{items: []menuItem{
		{label: "Check session with the server", action: actionProfile},
		{label: "Sign out", action: actionSignOut},
	}}
}

// Update moves the cursor and reports the chosen action on enter.
func (m *MenuModel) Update(msg tea.KeyMsg) (menuAction, bool) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		return m.items[m.cursor].action, true
	}
	return 0, false
}

func (m *MenuModel) View(s *client.Session) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Signed in as " + s.Name))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(s.Email))
	b.WriteString("\n")
	b.WriteString(okStyle.Render("Session expires " + formatExpiry(s.ExpiresAt)))
	b.WriteString("\n\n")

	for i, item := range m.items {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + item.label))
		} else {
			b.WriteString("  " + item.label)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ move  •  enter select  •  q quit"))
	return panelStyle.Render(b.String())
}
