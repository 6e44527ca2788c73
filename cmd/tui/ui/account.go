package ui

import (
	"strings"

	"github.com/Varun5711/tinyauth/cmd/tui/client"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

type authenticatedMsg struct {
	session client.Session
}

type authFailedMsg struct {
	err error
}

// AccountModel is the sign-in screen, or the sign-up screen when signUp is set.
type AccountModel struct {
	signUp  bool
	form    form
	loading bool
	problem string
	client  *client.AuthClient
}

func NewSignInModel(c *client.AuthClient) *AccountModel {
	return &AccountModel{
		form:   newForm(field{label: "Email"}, field{label: "Password", secret: true}),
		client: c,
	}
}

func NewSignUpModel(c *client.AuthClient) *AccountModel {
	return &AccountModel{
		signUp: true,
		form:   newForm(field{label: "Name"}, field{label: "Email"}, field{label: "Password", secret: true}),
		client: c,
	}
}

func (m *AccountModel) email() string {
	if m.signUp {
		return strings.TrimSpace(m.form.value(1))
	}
	return strings.TrimSpace(m.form.value(0))
}

func (m *AccountModel) password() string {
	return m.form.value(len(m.form.fields) - 1)
}

// check catches what the server would reject before a round trip and returns
// the message to show, or "".
func (m *AccountModel) check() string {
	switch {
	case m.signUp && strings.TrimSpace(m.form.value(0)) == "":
		return "Name is required."
	case !strings.Contains(m.email(), "@"):
		return "Enter a valid email address."
	case m.password() == "":
		return "Password is required."
	case m.signUp && len(m.password()) < minPasswordLen:
		return "Password must be at least 8 characters."
	case m.signUp && len(m.password()) > maxPasswordLen:
		return "Password must be at most 72 bytes."
	}
	return ""
}

func (m *AccountModel) submit() tea.Cmd {
	if problem := m.check(); problem != "" {
		m.problem = problem
		return nil
	}
	if m.client == nil {
		m.problem = "Auth client not connected."
		return nil
	}

	c, email, password := m.client, m.email(), m.password()
	name := ""
	if m.signUp {
		name = strings.TrimSpace(m.form.value(0))
	}
	signUp := m.signUp

	m.loading = true
	m.problem = ""
	return func() tea.Msg {
		var s *client.Session
		var err error
		if signUp {
			s, err = c.Register(email, password, name)
		} else {
			s, err = c.Login(email, password)
		}
		if err != nil {
			return authFailedMsg{err: err}
		}
		return authenticatedMsg{session: *s}
	}
}

// Reset drops the password and any message, keeping the other fields.
func (m *AccountModel) Reset(problem string) {
	m.form.clear(len(m.form.fields) - 1)
	m.loading = false
	m.problem = problem
}

func (m *AccountModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case authFailedMsg:
		m.loading = false
		m.problem = describe(msg.err)
		m.form.clear(len(m.form.fields) - 1)

	case tea.KeyMsg:
		if m.loading {
			return nil
		}
		if m.form.update(msg) {
			return m.submit()
		}
	}
	return nil
}

func (m *AccountModel) View() string {
	title, subtitle, other := "Sign in", "Welcome back.", "ctrl+s create account"
	if m.signUp {
		title, subtitle, other = "Create account", "Passwords need 8 to 72 bytes.", "ctrl+s sign in"
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(subtitle))
	b.WriteString("\n\n")
	b.WriteString(m.form.view())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(hintStyle.Render("Contacting auth service..."))
	case m.problem != "":
		b.WriteString(errorStyle.Render(m.problem))
	}
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render(strings.Join([]string{"tab next", "enter submit", "ctrl+u clear field", other, "esc quit"}, "  •  ")))

	return panelStyle.Render(lipgloss.NewStyle().Width(screenWidth - 8).Render(b.String()))
}
