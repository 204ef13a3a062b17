package view

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	couponhttp "github.com/invisifeed/invisifeed/internal/http/coupon"
)

const couponPageSize = 15

type couponsLoadedMsg struct {
	page *couponhttp.ListResponse
	err  error
}

type couponActionMsg struct {
	code string
	verb string
	err  error
}

type CouponsModel struct {
	CommonModel
	client *apiclient.Client

	table   table.Model
	page    *couponhttp.ListResponse
	number  int
	confirm *couponhttp.Response

	loading bool
	status  string
	err     error
}

func NewCouponsModel(client *apiclient.Client) CouponsModel {
	return CouponsModel{
		client: client,
		table: newTable([]table.Column{
			{Title: "Code", Width: 16},
			{Title: "Invoice", Width: 22},
			{Title: "Description", Width: 28},
			{Title: "Expires", Width: 12},
			{Title: "Status", Width: 10},
		}),
		number:  1,
		loading: true,
	}
}

func (m CouponsModel) Title() string { return "Coupons" }

func (m CouponsModel) ShortHelp() string {
	if m.confirm != nil {
		return "y: delete | n: keep"
	}

	return "u: mark used | d: delete | n/p: page | Esc: back"
}

func (m CouponsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m CouponsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case couponsLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err != nil {
			return m, signedOut(msg.err)
		}

		m.page = msg.page
		m.number = msg.page.Page
		m.table.SetRows(m.rows())

		return m, nil

	case couponActionMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Could not %s %s: %v", msg.verb, msg.code, msg.err))
			return m, signedOut(msg.err)
		}

		m.status = successStyle.Render(fmt.Sprintf("Coupon %s %s.", msg.code, pastTense(msg.verb)))

		return m, m.loadCmd()

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.updateConfirm(msg)
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "n":
			if m.page != nil && m.number < m.page.Pages {
				m.number++
				return m, m.loadCmd()
			}
		case "p":
			if m.number > 1 {
				m.number--
				return m, m.loadCmd()
			}
		case "u":
			c, ok := m.selected()
			if !ok {
				return m, nil
			}

			if c.IsUsed {
				m.status = warnStyle.Render(fmt.Sprintf("Coupon %s was already used.", c.Code))
				return m, nil
			}

			return m, m.actionCmd(c, "mark", m.client.MarkCouponUsed)
		case "d":
			c, ok := m.selected()
			if !ok {
				return m, nil
			}

			m.confirm = &c

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m CouponsModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := *m.confirm
	m.confirm = nil

	if msg.String() != "y" {
		return m, nil
	}

	return m, m.actionCmd(c, "delete", m.client.DeleteCoupon)
}

func pastTense(verb string) string {
	if verb == "mark" {
		return "marked as used"
	}

	return "deleted"
}

func (m CouponsModel) selected() (couponhttp.Response, bool) {
	if m.page == nil {
		return couponhttp.Response{}, false
	}

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.page.Coupons) {
		return couponhttp.Response{}, false
	}

	return m.page.Coupons[idx], true
}

func (m CouponsModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.page.Coupons))

	for _, c := range m.page.Coupons {
		status := "active"

		switch {
		case c.IsUsed:
			status = "used"
		case c.Expired:
			status = "expired"
		}

		rows = append(rows, table.Row{c.Code, c.InvoiceNumber, c.Description, FormatDate(c.ExpiryDate), status})
	}

	return rows
}

func (m CouponsModel) loadCmd() tea.Cmd {
	number := m.number

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		page, err := m.client.Coupons(ctx, number, couponPageSize)

		return couponsLoadedMsg{page: page, err: err}
	}
}

func (m CouponsModel) actionCmd(c couponhttp.Response, verb string, fn func(ctx context.Context, id uuid.UUID) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return couponActionMsg{code: c.Code, verb: verb, err: fn(ctx, c.ID)}
	}
}

func (m CouponsModel) View() string {
	if m.loading {
		return pad.Render("Loading coupons...")
	}

	if m.err != nil {
		return pad.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := titleStyle.Render(fmt.Sprintf("Coupons (page %d of %d, %d total)", m.page.Page, max(m.page.Pages, 1), m.page.Total))

	parts := []string{header, "", m.table.View()}

	if m.confirm != nil {
		parts = append(parts, "", warnStyle.Render(fmt.Sprintf("Delete coupon %s? (y/n)", m.confirm.Code)))
	}

	if m.status != "" {
		parts = append(parts, "", m.status)
	}

	return pad.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
