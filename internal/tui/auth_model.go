package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/session"
)

// AuthMode picks which form AuthModel shows.
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

// SessionActions is the part of the session the auth form drives.
type SessionActions interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
}

// sessionMsg carries a session snapshot pushed by a subscription.
type sessionMsg session.Session

type authDoneMsg struct {
	user *models.User
	err  error
}

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldConfirm
)

// AuthModel is the login and registration form.
type AuthModel struct {
	ctx     context.Context
	actions SessionActions
	mode    AuthMode

	inputs  []textinput.Model
	fields  []int // indexes into inputs shown in this mode
	focused int   // index into fields

	spinner spinner.Model
	loading bool

	validationErr string
	serverErr     string

	user      *models.User
	cancelled bool
	width     int
}

// NewAuthModel creates the form for mode, prefilled with username.
func NewAuthModel(ctx context.Context, actions SessionActions, mode AuthMode, username string) AuthModel {
	inputs := make([]textinput.Model, 4)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 40
		inputs[i].CharLimit = 100
		inputs[i].TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		inputs[i].PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
		inputs[i].Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	}
	inputs[fieldUsername].Placeholder = "username"
	inputs[fieldUsername].SetValue(username)
	inputs[fieldEmail].Placeholder = "you@example.com"
	inputs[fieldPassword].Placeholder = "password"
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldConfirm].Placeholder = "repeat password"
	inputs[fieldConfirm].EchoMode = textinput.EchoPassword

	fields := []int{fieldUsername, fieldPassword}
	if mode == ModeRegister {
		fields = []int{fieldUsername, fieldEmail, fieldPassword, fieldConfirm}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain))

	m := AuthModel{
		ctx:     ctx,
		actions: actions,
		mode:    mode,
		inputs:  inputs,
		fields:  fields,
		spinner: sp,
	}
	// Skip straight to the password when the username is known
	if username != "" && mode == ModeLogin {
		m.focused = 1
	}
	m.inputs[m.fields[m.focused]].Focus()
	return m
}

// User is the logged in or registered user once the form completed.
func (m AuthModel) User() *models.User { return m.user }

// Cancelled reports whether the user left the form without submitting.
func (m AuthModel) Cancelled() bool { return m.cancelled }

// Init initializes the model
func (m AuthModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m AuthModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case sessionMsg:
		// the session owns the loading flag; the spinner follows it
		wasLoading := m.loading
		m.loading = msg.Loading
		if m.loading && !wasLoading {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case authDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.serverErr = httpclient.Describe(msg.err)
			return m, nil
		}
		m.user = msg.user
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "down":
			return m.moveFocus(1), nil
		case "shift+tab", "up":
			return m.moveFocus(-1), nil
		case "enter":
			if m.loading {
				return m, nil
			}
			if m.focused < len(m.fields)-1 {
				return m.moveFocus(1), nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	i := m.fields[m.focused]
	m.inputs[i], cmd = m.inputs[i].Update(msg)
	m.validationErr = ""
	return m, cmd
}

func (m AuthModel) moveFocus(delta int) AuthModel {
	m.inputs[m.fields[m.focused]].Blur()
	m.focused = (m.focused + delta + len(m.fields)) % len(m.fields)
	m.inputs[m.fields[m.focused]].Focus()
	return m
}

func (m AuthModel) value(field int) string {
	return strings.TrimSpace(m.inputs[field].Value())
}

// validate checks what can be checked before asking the server.
func (m AuthModel) validate() string {
	if m.value(fieldUsername) == "" {
		return "Username is required"
	}
	if m.inputs[fieldPassword].Value() == "" {
		return "Password is required"
	}
	if m.mode == ModeRegister {
		if !strings.Contains(m.value(fieldEmail), "@") {
			return "Email looks invalid"
		}
		if m.inputs[fieldPassword].Value() != m.inputs[fieldConfirm].Value() {
			return "Passwords do not match"
		}
	}
	return ""
}

func (m AuthModel) submit() (tea.Model, tea.Cmd) {
	if msg := m.validate(); msg != "" {
		m.validationErr = msg
		return m, nil
	}
	m.serverErr = ""
	m.loading = true

	ctx, actions := m.ctx, m.actions
	username, password := m.value(fieldUsername), m.inputs[fieldPassword].Value()
	if m.mode == ModeLogin {
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			user, err := actions.Login(ctx, username, password)
			return authDoneMsg{user: user, err: err}
		})
	}

	in := models.RegisterInput{Username: username, Email: m.value(fieldEmail), Password: password}
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		user, err := actions.Register(ctx, in)
		return authDoneMsg{user: user, err: err}
	})
}

// View renders the TUI
func (m AuthModel) View() string {
	if m.cancelled || m.user != nil {
		return ""
	}

	var b strings.Builder
	title := "🔐 Log in to defectctl"
	if m.mode == ModeRegister {
		title = "📝 Create a defectctl account"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).Render(title))
	b.WriteString("\n\n")

	labels := map[int]string{
		fieldUsername: "Username",
		fieldEmail:    "Email",
		fieldPassword: "Password",
		fieldConfirm:  "Confirm",
	}
	for pos, i := range m.fields {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Width(10)
		if pos == m.focused {
			style = style.Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
		}
		b.WriteString(style.Render(labels[i]))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View())
		if m.mode == ModeLogin {
			b.WriteString(" Signing in...")
		} else {
			b.WriteString(" Creating account...")
		}
	case m.validationErr != "":
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render("⚠ " + m.validationErr))
	case m.serverErr != "":
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("✗ " + m.serverErr))
	}
	b.WriteString("\n\n")

	help := "tab next field · enter submit · esc cancel"
	if m.mode == ModeRegister {
		help = fmt.Sprintf("%s · new accounts start as %s", help, models.RoleObserver)
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true).Render(help))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(1, 2).
		Render(b.String())
}
