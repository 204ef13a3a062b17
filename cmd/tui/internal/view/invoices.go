package view

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	invoicehttp "github.com/invisifeed/invisifeed/internal/http/invoice"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/session"
)

const invoicePageSize = 20

type invoicesLoadedMsg struct {
	invoices []invoicehttp.Response
	err      error
}

type sampleResultMsg struct {
	res invoice.ProcessResult
	err error
}

type invoiceEmailedMsg struct {
	number string
	err    error
}

type InvoicesModel struct {
	CommonModel
	client *apiclient.Client

	table    table.Model
	invoices []invoicehttp.Response
	offset   int

	loading  bool
	sampling bool
	sending  bool
	status   string
	err      error
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func NewInvoicesModel(client *apiclient.Client) InvoicesModel {
	return InvoicesModel{
		client: client,
		table: newTable([]table.Column{
			{Title: "Number", Width: 22},
			{Title: "Date", Width: 12},
			{Title: "Customer", Width: 24},
			{Title: "Amount", Width: 12},
			{Title: "Coupon", Width: 16},
			{Title: "Source", Width: 8},
		}),
		loading: true,
	}
}

func (m InvoicesModel) Title() string { return "Invoices" }

func (m InvoicesModel) ShortHelp() string {
	return "s: sample invoice | e: e-mail | n/p: page | r: refresh | Esc: back"
}

func (m InvoicesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case invoicesLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err != nil {
			return m, signedOut(msg.err)
		}

		m.invoices = msg.invoices
		m.table.SetRows(m.rows())
		m.table.SetCursor(0)

		return m, nil

	case sampleResultMsg:
		m.sampling = false

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Sample failed: %v", msg.err))
			return m, signedOut(msg.err)
		}

		m.status = successStyle.Render(fmt.Sprintf("Sample invoice %s created.", msg.res.InvoiceNumber))
		m.offset = 0
		m.loading = true

		return m, tea.Batch(
			updateSession(session.CounterChanged{Count: msg.res.DailyUploadCount, Limit: msg.res.DailyLimit}),
			m.loadCmd(),
		)

	case invoiceEmailedMsg:
		m.sending = false

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("E-mail failed: %v", msg.err))
			return m, signedOut(msg.err)
		}

		m.status = successStyle.Render(fmt.Sprintf("Invoice %s e-mailed.", msg.number))

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "n":
			if len(m.invoices) == invoicePageSize {
				m.offset += invoicePageSize
				m.loading = true

				return m, m.loadCmd()
			}
		case "p":
			if m.offset > 0 {
				m.offset = max(0, m.offset-invoicePageSize)
				m.loading = true

				return m, m.loadCmd()
			}
		case "s":
			switch {
			case m.sampling:
				return m, nil
			case m.Session.LimitReached():
				m.status = warnStyle.Render(limitNotice(m.Session.DailyLimit))
				return m, nil
			case !m.Session.ProfileCompleted():
				m.status = warnStyle.Render(profileNotice)
				return m, nil
			}

			m.sampling = true
			m.status = mutedStyle.Render("Generating a sample invoice...")

			return m, m.sampleCmd()
		case "e":
			inv, ok := m.selected()
			if !ok || m.sending {
				return m, nil
			}

			if inv.Customer.Email == "" {
				m.status = warnStyle.Render("This invoice has no customer e-mail.")
				return m, nil
			}

			m.sending = true
			m.status = mutedStyle.Render("Sending e-mail...")

			return m, m.emailCmd(inv.Number)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InvoicesModel) selected() (invoicehttp.Response, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.invoices) {
		return invoicehttp.Response{}, false
	}

	return m.invoices[idx], true
}

func (m InvoicesModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.invoices))

	for _, inv := range m.invoices {
		code := "-"
		if inv.Coupon != nil {
			code = inv.Coupon.Code
		}

		number := inv.Number
		if inv.IsSample {
			number += " (sample)"
		}

		rows = append(rows, table.Row{
			number,
			FormatDate(inv.InvoiceDate),
			inv.Customer.Name,
			FormatAmount(inv.Amount),
			code,
			string(inv.Source),
		})
	}

	return rows
}

func (m InvoicesModel) loadCmd() tea.Cmd {
	offset := m.offset

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		invs, err := m.client.Invoices(ctx, invoicePageSize, offset)

		return invoicesLoadedMsg{invoices: invs, err: err}
	}
}

func (m InvoicesModel) sampleCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		res, err := m.client.Sample(ctx)

		return sampleResultMsg{res: res, err: err}
	}
}

func (m InvoicesModel) emailCmd(number string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return invoiceEmailedMsg{number: number, err: m.client.Email(ctx, number)}
	}
}

func (m InvoicesModel) View() string {
	if m.loading {
		return pad.Render("Loading invoices...")
	}

	if m.err != nil {
		return pad.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := titleStyle.Render(fmt.Sprintf("Invoices %d-%d", m.offset+1, m.offset+len(m.invoices)))
	if len(m.invoices) == 0 {
		header = titleStyle.Render("No invoices yet") + "\n" + mutedStyle.Render("Press s to generate a sample invoice.")
	}

	parts := []string{header, "", m.table.View()}
	if m.status != "" {
		parts = append(parts, "", m.status)
	}

	return pad.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
