package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/debounce"
	"github.com/invisifeed/invisifeed/internal/session"
)

const usernameCheckDelay = 400 * time.Millisecond

type loginState int

const (
	loginStateMode loginState = iota
	loginStateSignIn
	loginStateRegister
	loginStateSending
)

type availability = debounce.Result[string, bool]

type availabilityMsg availability

// LoggedInMsg carries the snapshot of a fresh session.
type LoggedInMsg struct {
	Snapshot session.Snapshot
}

type authResultMsg struct {
	snap session.Snapshot
	err  error
}

const (
	fieldUsername = iota
	fieldEmail
	fieldBusinessName
	fieldPassword
	fieldCount
)

type LoginModel struct {
	CommonModel
	client *apiclient.Client

	state      loginState
	modeCursor int

	form *huh.Form

	inputs     []textinput.Model
	focusIndex int

	checker   *debounce.Task[string, bool]
	checks    chan availability
	checked   string
	available bool
	checking  bool

	spinner spinner.Model
	err     error
}

func NewLoginModel(client *apiclient.Client) LoginModel {
	checks := make(chan availability, 1)

	deliver := func(r availability) {
		select {
		case <-checks:
		default:
		}

		checks <- r
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return LoginModel{
		client:  client,
		inputs:  newRegisterInputs(),
		checker: debounce.New[string, bool](usernameCheckDelay, client.UsernameAvailable, deliver),
		checks:  checks,
		spinner: s,
	}
}

func newRegisterInputs() []textinput.Model {
	inputs := make([]textinput.Model, fieldCount)

	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 100
		ti.Width = 40
		inputs[i] = ti
	}

	inputs[fieldUsername].Prompt = "Username:      "
	inputs[fieldUsername].CharLimit = 30
	inputs[fieldEmail].Prompt = "Email:         "
	inputs[fieldBusinessName].Prompt = "Business name: "
	inputs[fieldPassword].Prompt = "Password:      "
	inputs[fieldPassword].EchoMode = textinput.EchoPassword

	return inputs
}

func (m LoginModel) Title() string { return "Sign In" }

func (m LoginModel) ShortHelp() string {
	switch m.state {
	case loginStateRegister:
		return "Tab: next field | Enter: create account | Esc: back"
	case loginStateSending:
		return "Please wait..."
	}

	return "Esc: back | Enter: confirm"
}

func (m LoginModel) Init() tea.Cmd {
	return m.waitForCheck()
}

func (m LoginModel) waitForCheck() tea.Cmd {
	return func() tea.Msg {
		return availabilityMsg(<-m.checks)
	}
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case availabilityMsg:
		if msg.Input == business.NormalizeUsername(m.inputs[fieldUsername].Value()) {
			m.checking = false
			m.checked = msg.Input
			m.available = msg.Err == nil && msg.Output
		}

		return m, m.waitForCheck()

	case authResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = m.returnState()

			if m.state == loginStateSignIn {
				m.form = m.buildSignInForm()
				return m, m.form.Init()
			}

			return m, nil
		}

		m.checker.Stop()

		return m, func() tea.Msg { return LoggedInMsg{Snapshot: msg.snap} }
	}

	switch m.state {
	case loginStateMode:
		return m.updateMode(msg)
	case loginStateSignIn:
		return m.updateSignIn(msg)
	case loginStateRegister:
		return m.updateRegister(msg)
	case loginStateSending:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m LoginModel) returnState() loginState {
	if m.form != nil {
		return loginStateSignIn
	}

	return loginStateRegister
}

func (m LoginModel) updateMode(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp, tea.KeyDown:
		m.modeCursor = 1 - m.modeCursor
	case tea.KeyEnter:
		m.err = nil

		if m.modeCursor == 0 {
			m.state = loginStateSignIn
			m.form = m.buildSignInForm()

			return m, m.form.Init()
		}

		m.state = loginStateRegister
		m.form = nil
		m.focusIndex = 0

		return m, m.focus(0)
	}

	return m, nil
}

func (m LoginModel) buildSignInForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("login").
				Title("Username or email").
				Validate(huh.ValidateNotEmpty()),
			huh.NewInput().
				Key("password").
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Validate(huh.ValidateNotEmpty()),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m LoginModel) updateSignIn(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = loginStateMode
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = loginStateSending
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.signInCmd(m.form.GetString("login"), m.form.GetString("password")))
}

func (m LoginModel) focus(i int) tea.Cmd {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}

	return m.inputs[i].Focus()
}

func (m LoginModel) updateRegister(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.checker.Stop()
			m.checking = false
			m.state = loginStateMode

			return m, nil
		case "tab", "down":
			m.focusIndex = (m.focusIndex + 1) % fieldCount
			return m, m.focus(m.focusIndex)
		case "shift+tab", "up":
			m.focusIndex = (m.focusIndex + fieldCount - 1) % fieldCount
			return m, m.focus(m.focusIndex)
		case "enter":
			return m.submitRegister()
		}
	}

	before := m.inputs[fieldUsername].Value()

	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)

	if name := m.inputs[fieldUsername].Value(); name != before {
		m.checkUsername(name)
	}

	return m, cmd
}

func (m *LoginModel) checkUsername(raw string) {
	name := business.NormalizeUsername(raw)
	if len(name) < 3 {
		m.checker.Stop()
		m.checking = false

		return
	}

	m.checking = true
	m.checker.Trigger(context.Background(), name)
}

func (m LoginModel) submitRegister() (tea.Model, tea.Cmd) {
	params := business.RegisterParams{
		Username:     m.inputs[fieldUsername].Value(),
		Email:        strings.TrimSpace(m.inputs[fieldEmail].Value()),
		BusinessName: strings.TrimSpace(m.inputs[fieldBusinessName].Value()),
		Password:     m.inputs[fieldPassword].Value(),
	}

	switch {
	case params.Username == "" || params.Email == "" || params.BusinessName == "" || params.Password == "":
		m.err = fmt.Errorf("every field is required")
		return m, nil
	case m.checked == business.NormalizeUsername(params.Username) && !m.available:
		m.err = fmt.Errorf("username %q is not available", m.checked)
		return m, nil
	}

	m.state = loginStateSending
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.registerCmd(params))
}

func (m LoginModel) signInCmd(login, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		resp, err := m.client.Login(ctx, login, password)
		if err != nil {
			return authResultMsg{err: err}
		}

		return authResultMsg{snap: apiclient.Snapshot(resp)}
	}
}

func (m LoginModel) registerCmd(params business.RegisterParams) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		resp, err := m.client.Register(ctx, params)
		if err != nil {
			return authResultMsg{err: err}
		}

		return authResultMsg{snap: apiclient.Snapshot(resp)}
	}
}

func (m LoginModel) View() string {
	var body string

	switch m.state {
	case loginStateMode:
		body = m.viewMode()
	case loginStateSignIn:
		body = m.form.View()
	case loginStateRegister:
		body = m.viewRegister()
	case loginStateSending:
		body = fmt.Sprintf("%s Contacting InvisiFeed...", m.spinner.View())
	}

	if m.err != nil {
		body += "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	return pad.Render(body)
}

func (m LoginModel) viewMode() string {
	s := titleStyle.Render("InvisiFeed") + "\n\n"

	for i, label := range []string{"Sign in", "Create an account"} {
		cursor := " "
		if i == m.modeCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, label)
	}

	return s
}

func (m LoginModel) viewRegister() string {
	rows := make([]string, 0, fieldCount+1)

	for i, in := range m.inputs {
		rows = append(rows, in.View())

		if i == fieldUsername {
			rows = append(rows, "  "+m.usernameStatus())
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Create an account"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m LoginModel) usernameStatus() string {
	name := business.NormalizeUsername(m.inputs[fieldUsername].Value())

	switch {
	case len(name) < 3:
		return mutedStyle.Render("3-30 lowercase letters, digits or underscores")
	case m.checking || m.checked != name:
		return mutedStyle.Render("checking...")
	case m.available:
		return successStyle.Render(fmt.Sprintf("%q is available", name))
	}

	return errorStyle.Render(fmt.Sprintf("%q is taken or not allowed", name))
}
