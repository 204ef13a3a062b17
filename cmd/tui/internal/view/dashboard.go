package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/feedback"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

const barWidth = 30

type dashboardLoadedMsg struct {
	dashboard *metrics.Dashboard
	err       error
}

type DashboardModel struct {
	CommonModel
	client *apiclient.Client

	selection metrics.Selection
	picker    SelectionPicker
	picking   bool

	dashboard *metrics.Dashboard
	loading   bool
	err       error
}

func NewDashboardModel(client *apiclient.Client) DashboardModel {
	sel := metrics.DefaultSelection()

	return DashboardModel{
		client:    client,
		selection: sel,
		picker:    NewSelectionPicker(sel),
		loading:   true,
	}
}

func (m DashboardModel) Title() string { return "Dashboard" }

func (m DashboardModel) ShortHelp() string {
	if m.picking {
		return "Enter: select | Esc: back"
	}

	return "w: change window | r: refresh | Esc: back"
}

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd(m.selection)
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardLoadedMsg:
		m.loading = false
		m.err = msg.err

		if msg.err != nil {
			return m, signedOut(msg.err)
		}

		m.dashboard = msg.dashboard

		return m, nil

	case SelectionMsg:
		m.picking = false
		m.selection = msg.Selection
		m.loading = true

		return m, m.loadCmd(m.selection)

	case tea.KeyMsg:
		if m.picking {
			if msg.Type == tea.KeyEsc && m.picker.IsListing() {
				m.picking = false
				return m, nil
			}

			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)

			return m, cmd
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "w":
			m.picking = true
			m.picker = NewSelectionPicker(m.selection)
		case "r":
			m.loading = true
			return m, m.loadCmd(m.selection)
		}
	}

	return m, nil
}

func (m DashboardModel) loadCmd(sel metrics.Selection) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		d, err := m.client.Dashboard(ctx, sel)

		return dashboardLoadedMsg{dashboard: d, err: err}
	}
}

func (m DashboardModel) View() string {
	switch {
	case m.picking:
		return pad.Render(m.picker.View())
	case m.loading:
		return pad.Render("Loading dashboard...")
	case m.err != nil:
		return pad.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.dashboard == nil:
		return ""
	}

	d := m.dashboard

	sections := []string{
		titleStyle.Render("Dashboard: " + selectionLabel(d.Selection)),
		"",
		fmt.Sprintf("Invoices:  %d    Feedback: %d    Response rate: %.0f%%", d.TotalInvoices, d.TotalFeedbacks, d.FeedbackRatio),
		fmt.Sprintf("Positive:  %.0f%%    Negative: %.0f%%", d.PositivePercent, d.NegativePercent),
		"",
		m.viewRatings(d),
		"",
		m.viewSeries(d),
		"",
		m.viewSales(d),
	}

	if len(d.Improvements) > 0 || len(d.Strengths) > 0 {
		sections = append(sections, "", m.viewInsights(d))
	}

	sections = append(sections, "", mutedStyle.Render("Generated "+d.GeneratedAt.Local().Format("2006-01-02 15:04")))

	return pad.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func selectionLabel(sel metrics.Selection) string {
	if sel.Year != 0 {
		return fmt.Sprintf("Calendar Year %d", sel.Year)
	}

	for c, v := range choiceViews {
		if v == sel.View {
			return c.String()
		}
	}

	return string(sel.View)
}

func bar(value, maxValue float64) string {
	if maxValue <= 0 {
		return ""
	}

	n := int(value / maxValue * barWidth)

	return strings.Repeat("█", n)
}

func (m DashboardModel) viewRatings(d *metrics.Dashboard) string {
	lines := []string{"Average ratings"}

	for _, c := range feedback.Categories {
		avg := d.AverageRatings[c]
		label := string(c)

		switch c {
		case d.BestCategory:
			label += " (best)"
		case d.WorstCategory:
			label += " (worst)"
		}

		lines = append(lines, fmt.Sprintf("  %-26s %4.1f %s", label, avg, bar(avg, 5)))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) viewSeries(d *metrics.Dashboard) string {
	peak := 0
	for _, p := range d.Series {
		peak = max(peak, p.Invoices)
	}

	lines := []string{"Invoices and feedback"}
	for _, p := range d.Series {
		if p.Invoices == 0 && p.Feedbacks == 0 {
			continue
		}

		lines = append(lines, fmt.Sprintf("  %-8s %3d / %-3d %s", p.Label, p.Invoices, p.Feedbacks, bar(float64(p.Invoices), float64(peak))))
	}

	if len(lines) == 1 {
		lines = append(lines, mutedStyle.Render("  nothing in this window"))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) viewSales(d *metrics.Dashboard) string {
	if d.Locked.SalesAnalysis || d.Sales == nil {
		return warnStyle.Render("Sales analysis and rating trends are available on Pro.")
	}

	lines := []string{fmt.Sprintf("Sales total %s", FormatAmount(d.Sales.Total))}
	for i, p := range d.Sales.Series {
		if p.Total.IsZero() {
			continue
		}

		trend := ""
		if !d.Locked.RatingTrends && i < len(d.RatingTrend) && d.RatingTrend[i].AverageRating > 0 {
			trend = fmt.Sprintf("  rating %.1f", d.RatingTrend[i].AverageRating)
		}

		lines = append(lines, fmt.Sprintf("  %-8s %12s%s", p.Label, FormatAmount(p.Total), trend))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) viewInsights(d *metrics.Dashboard) string {
	lines := []string{"What customers say"}

	for _, s := range d.Strengths {
		lines = append(lines, successStyle.Render("  + "+s))
	}

	for _, s := range d.Improvements {
		lines = append(lines, warnStyle.Render("  - "+s))
	}

	return strings.Join(lines, "\n")
}
