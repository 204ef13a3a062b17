package view

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/invisifeed/invisifeed/internal/apiclient"
)

// ResetDoneMsg reports that the business's invoices, coupons and feedback
// were removed on the server.
type ResetDoneMsg struct{}

type resetResultMsg struct {
	err error
}

type ResetModel struct {
	CommonModel
	client *apiclient.Client

	form    *huh.Form
	confirm *bool
	busy    bool
	status  string
}

func NewResetModel(client *apiclient.Client) ResetModel {
	m := ResetModel{client: client}
	m.form, m.confirm = buildResetForm()

	return m
}

func buildResetForm() (*huh.Form, *bool) {
	confirm := new(bool)

	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Delete all invoices, coupons and feedback?").
			Description("Your account, profile and plan are kept. This cannot be undone.").
			Affirmative("Delete everything").
			Negative("Cancel").
			Value(confirm),
	)).WithWidth(60).WithShowHelp(false)

	return form, confirm
}

func (m ResetModel) Title() string { return "Reset Data" }

func (m ResetModel) ShortHelp() string {
	return "Enter: confirm | Esc: back"
}

func (m ResetModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ResetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resetResultMsg:
		m.busy = false
		m.form, m.confirm = buildResetForm()

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Reset failed: %v", msg.err))
			return m, tea.Batch(m.form.Init(), signedOut(msg.err))
		}

		m.status = successStyle.Render("All invoice data was removed.")

		return m, tea.Batch(m.form.Init(), func() tea.Msg { return ResetDoneMsg{} })

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if !*m.confirm {
		return m, Back
	}

	m.busy = true
	m.status = mutedStyle.Render("Deleting...")

	return m, m.resetCmd()
}

func (m ResetModel) resetCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return resetResultMsg{err: m.client.Reset(ctx)}
	}
}

func (m ResetModel) View() string {
	out := m.form.View()
	if m.busy {
		out = ""
	}

	if m.status != "" {
		out += "\n\n" + m.status
	}

	return pad.Render(out)
}
