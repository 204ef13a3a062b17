package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/invisifeed/invisifeed/cmd/tui/internal/view"
	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/config"
	"github.com/invisifeed/invisifeed/internal/session"
)

type model struct {
	api            *apiclient.Client
	maxUploadBytes int64

	session     session.Snapshot
	currentView View
	width       int
	height      int

	loginView     view.LoginModel
	intakeView    view.IntakeModel
	invoicesView  view.InvoicesModel
	couponsView   view.CouponsModel
	dashboardView view.DashboardModel
	profileView   view.ProfileModel
	resetView     view.ResetModel
}

type View int

const (
	ViewLogin     View = 0
	ViewMenu      View = 1
	ViewIntake    View = 2
	ViewInvoices  View = 3
	ViewCoupons   View = 4
	ViewDashboard View = 5
	ViewProfile   View = 6
	ViewReset     View = 7
)

var (
	menuStyle   = lipgloss.NewStyle().Padding(2)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	api := apiclient.New(cfg.Client.APIURL)

	return model{
		api:            api,
		maxUploadBytes: cfg.Limits.MaxUploadBytes,
		currentView:    ViewLogin,
		loginView:      view.NewLoginModel(api),
	}
}

func (m model) Init() tea.Cmd {
	return m.loginView.Init()
}

// signIn builds the signed-in screens around a client carrying the token.
func (m model) signIn(snap session.Snapshot) model {
	m.session = session.Reduce(m.session, session.SignedIn{Snapshot: snap})

	client := m.api.WithToken(snap.Token)

	m.intakeView = view.NewIntakeModel(client, m.maxUploadBytes)
	m.invoicesView = view.NewInvoicesModel(client)
	m.couponsView = view.NewCouponsModel(client)
	m.dashboardView = view.NewDashboardModel(client)
	m.profileView = view.NewProfileModel(client)
	m.resetView = view.NewResetModel(client)
	m.currentView = ViewMenu

	return m.sync()
}

// sync pushes the snapshot and window size into every screen.
func (m model) sync() model {
	common := view.CommonModel{Width: m.width, Height: m.height, Session: m.session}

	m.intakeView.CommonModel = common
	m.invoicesView.CommonModel = common
	m.couponsView.CommonModel = common
	m.dashboardView.CommonModel = common
	m.profileView.CommonModel = common
	m.resetView.CommonModel = common

	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m = m.sync()

	case view.LoggedInMsg:
		m = m.signIn(msg.Snapshot)
		return m, nil

	case view.SessionMsg:
		m.session = session.Reduce(m.session, msg.Updates...)
		m = m.sync()

		return m, nil

	case view.SignedOutMsg:
		m.session = session.Reduce(m.session, session.SignedOut{})
		m.loginView = view.NewLoginModel(m.api)
		m.currentView = ViewLogin

		return m, m.loginView.Init()

	case view.ResetDoneMsg:
		m.session = session.Reduce(m.session, session.CounterChanged{Count: 0, Limit: m.session.DailyLimit})
		m = m.sync()
		m.intakeView, cmd = m.intakeView.Reset()

		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewIntake
				return m, m.intakeView.Init()
			case "2":
				m.currentView = ViewInvoices
				m.invoicesView = view.NewInvoicesModel(m.api.WithToken(m.session.Token))
				m = m.sync()

				return m, m.invoicesView.Init()
			case "3":
				m.currentView = ViewCoupons
				m.couponsView = view.NewCouponsModel(m.api.WithToken(m.session.Token))
				m = m.sync()

				return m, m.couponsView.Init()
			case "4":
				m.currentView = ViewDashboard
				return m, m.dashboardView.Init()
			case "5":
				m.currentView = ViewProfile
				return m, m.profileView.Init()
			case "6":
				m.currentView = ViewReset
				m.resetView = view.NewResetModel(m.api.WithToken(m.session.Token))
				m = m.sync()

				return m, m.resetView.Init()
			case "l":
				return m, func() tea.Msg { return view.SignedOutMsg{} }
			}

			return m, nil
		}
	case view.BackMsg:
		if m.currentView != ViewLogin {
			m.currentView = ViewMenu
		}

		return m, nil
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewIntake:
		var newModel tea.Model
		newModel, cmd = m.intakeView.Update(msg)
		m.intakeView = newModel.(view.IntakeModel)
	case ViewInvoices:
		var newModel tea.Model
		newModel, cmd = m.invoicesView.Update(msg)
		m.invoicesView = newModel.(view.InvoicesModel)
	case ViewCoupons:
		var newModel tea.Model
		newModel, cmd = m.couponsView.Update(msg)
		m.couponsView = newModel.(view.CouponsModel)
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewProfile:
		var newModel tea.Model
		newModel, cmd = m.profileView.Update(msg)
		m.profileView = newModel.(view.ProfileModel)
	case ViewReset:
		var newModel tea.Model
		newModel, cmd = m.resetView.Update(msg)
		m.resetView = newModel.(view.ResetModel)
	}

	return m, cmd
}

func (m model) screen() view.View {
	switch m.currentView {
	case ViewLogin:
		return m.loginView
	case ViewIntake:
		return m.intakeView
	case ViewInvoices:
		return m.invoicesView
	case ViewCoupons:
		return m.couponsView
	case ViewDashboard:
		return m.dashboardView
	case ViewProfile:
		return m.profileView
	case ViewReset:
		return m.resetView
	}

	return nil
}

func (m model) View() string {
	if m.currentView == ViewMenu {
		return menuStyle.Render(m.menu())
	}

	v := m.screen()
	if v == nil {
		return "Unknown View"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.View(),
		hintStyle.Render(" "+v.Title()+"  |  "+v.ShortHelp()),
	)
}

func (m model) menu() string {
	s := m.session

	lines := []string{
		headerStyle.Render("InvisiFeed"),
		hintStyle.Render(s.BusinessName + "  |  " + string(s.Plan.Name) + "  |  " + view.FormatUsage(s)),
		"",
		"1. New Invoice",
		"2. Invoices",
		"3. Coupons",
		"4. Dashboard",
		"5. Profile",
		"6. Reset Data",
		"",
		"l. Sign out",
		"q. Quit",
	}

	if !s.ProfileCompleted() {
		lines = append(lines, "", alertStyle.Render("Complete your profile to add coupons and GSTIN to invoices."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
