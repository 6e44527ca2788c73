package ui

import (
	"time"

	"github.com/Varun5711/tinyauth/cmd/tui/client"
	tea "github.com/charmbracelet/bubbletea"
)

type View int

const (
	SignInView View = iota
	SignUpView
	MenuView
	ProfileView
)

// sessionExpiredMsg fires when the token of the session it names runs out.
type sessionExpiredMsg struct {
	token string
}

type Model struct {
	view    View
	signIn  *AccountModel
	signUp  *AccountModel
	menu    *MenuModel
	profile *ProfileModel
	session *client.Session
}

func NewModel(authClient *client.AuthClient) Model {
	return Model{
		view:    SignInView,
		signIn:  NewSignInModel(authClient),
		signUp:  NewSignUpModel(authClient),
		menu:    NewMenuModel(),
		profile: NewProfileModel(authClient),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) start(s client.Session) tea.Cmd {
	m.session = &s
	m.signIn.Reset("")
	m.signUp.Reset("")
	m.view = MenuView

	if s.ExpiresAt.IsZero() {
		return nil
	}
	token := s.Token
	return tea.Tick(time.Until(s.ExpiresAt), func(time.Time) tea.Msg {
		return sessionExpiredMsg{token: token}
	})
}

// end drops the session and returns to the sign-in screen showing problem.
func (m *Model) end(problem string) {
	m.session = nil
	m.signIn.Reset(problem)
	m.view = SignInView
}

func (m *Model) current(token string) bool {
	return m.session != nil && m.session.Token == token
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authenticatedMsg:
		return m, m.start(msg.session)

	case authFailedMsg:
		if m.signUp.loading {
			return m, m.signUp.Update(msg)
		}
		return m, m.signIn.Update(msg)

	case profileLoadedMsg, profileErrorMsg:
		return m, m.profile.Update(msg)

	case sessionExpiredMsg:
		if m.current(msg.token) {
			m.end("Your session expired. Sign in again.")
		}
		return m, nil

	case sessionRejectedMsg:
		if m.current(msg.token) {
			m.end("The server rejected your session. Sign in again.")
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			switch m.view {
			case SignInView, SignUpView, MenuView:
				return m, tea.Quit
			case ProfileView:
				m.view = MenuView
				return m, nil
			}
		case tea.KeyCtrlS:
			switch m.view {
			case SignInView:
				m.view = SignUpView
				return m, nil
			case SignUpView:
				m.view = SignInView
				return m, nil
			}
		}
	}

	switch m.view {
	case SignInView:
		return m, m.signIn.Update(msg)

	case SignUpView:
		return m, m.signUp.Update(msg)

	case MenuView:
		key, ok := msg.(tea.KeyMsg)
		if !ok {
			return m, nil
		}
		if key.String() == "q" {
			return m, tea.Quit
		}
		action, chosen := m.menu.Update(key)
		if !chosen {
			return m, nil
		}
		switch action {
		case actionProfile:
			m.view = ProfileView
			return m, m.profile.Load(m.session)
		case actionSignOut:
			m.end("")
		}
		return m, nil

	case ProfileView:
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "q" {
			m.view = MenuView
			return m, nil
		}
		return m, m.profile.Update(msg)
	}

	return m, nil
}

func (m Model) View() string {
	switch m.view {
	case SignUpView:
		return m.signUp.View()
	case MenuView:
		return m.menu.View(m.session)
	case ProfileView:
		return m.profile.View()
	default:
		return m.signIn.View()
	}
}
