package ui

import (
	"strings"
	"time"

	"github.com/Varun5711/tinyauth/cmd/tui/client"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type profileLoadedMsg struct {
	identity client.Identity
}

type profileErrorMsg struct {
	err error
}

// sessionRejectedMsg is sent when the server no longer accepts the token,
// because it expired or the account is gone.
type sessionRejectedMsg struct {
	token string
}

// ProfileModel shows who the server thinks the token belongs to.
type ProfileModel struct {
	session  *client.Session
	identity *client.Identity
	loading  bool
	problem  string
	client   *client.AuthClient
}

func NewProfileModel(c *client.AuthClient) *ProfileModel {
	return &ProfileModel{client: c}
}

// Load resets the view for s and asks the server to resolve its token.
func (m *ProfileModel) Load(s *client.Session) tea.Cmd {
	m.session = s
	m.identity = nil
	m.problem = ""
	if m.client == nil {
		m.problem = "Auth client not connected."
		return nil
	}

	m.loading = true
	c, token := m.client, s.Token
	return func() tea.Msg {
		id, err := c.Profile(token)
		if err != nil {
			if status.Code(err) == codes.Unauthenticated {
				return sessionRejectedMsg{token: token}
			}
			return profileErrorMsg{err: err}
		}
		return profileLoadedMsg{identity: *id}
	}
}

func (m *ProfileModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		m.loading = false
		m.identity = &msg.identity
	case profileErrorMsg:
		m.loading = false
		m.problem = describe(msg.err)
	case tea.KeyMsg:
		if msg.String() == "r" && !m.loading && m.session != nil {
			return m.Load(m.session)
		}
	}
	return nil
}

func (m *ProfileModel) View() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Session"))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(hintStyle.Render("Asking the server about this token..."))
	case m.problem != "":
		b.WriteString(errorStyle.Render(m.problem))
	case m.identity != nil:
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left,
			row("User ID", m.identity.UserID),
			row("Name", m.identity.Name),
			row("Email", m.identity.Email),
			row("Expires", formatExpiry(m.session.ExpiresAt)),
		))
		b.WriteString("\n\n")
		b.WriteString(okStyle.Render("The server accepts this token."))
	}

	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("r recheck  •  esc back"))
	return panelStyle.Render(b.String())
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render(label), valueStyle.Render(value))
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "at an unknown time"
	}
	left := time.Until(t).Round(time.Minute)
	if left <= 0 {
		return t.Local().Format(time.RFC1123) + " (expired)"
	}
	return t.Local().Format(time.RFC1123) + " (in " + left.String() + ")"
}
