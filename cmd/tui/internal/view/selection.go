package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/invisifeed/invisifeed/internal/metrics"
)

type choice int

const (
	choiceWeek choice = iota
	choiceMonth
	choiceYear
	choiceCalendarYear
)

func (c choice) String() string {
	switch c {
	case choiceWeek:
		return "Last 7 Days"
	case choiceMonth:
		return "This Month"
	case choiceYear:
		return "This Year"
	case choiceCalendarYear:
		return "Calendar Year..."
	}

	return "Unknown"
}

var choiceViews = map[choice]metrics.View{
	choiceWeek:  metrics.ViewCurrentWeek,
	choiceMonth: metrics.ViewCurrentMonth,
	choiceYear:  metrics.ViewCurrentYear,
}

// SelectionMsg is emitted when the user has picked a dashboard window.
type SelectionMsg struct {
	Selection metrics.Selection
}

type selectionState int

const (
	selectionStateList selectionState = iota
	selectionStateYear
)

// SelectionPicker picks a rolling view or a calendar year, never both.
type SelectionPicker struct {
	state    selectionState
	selected choice
	current  metrics.Selection

	yearInput textinput.Model
	err       error
}

func NewSelectionPicker(current metrics.Selection) SelectionPicker {
	yi := textinput.New()
	yi.Placeholder = "YYYY"
	yi.CharLimit = 4
	yi.Width = 6
	yi.Prompt = "Year: "

	p := SelectionPicker{current: current, selected: choiceMonth, yearInput: yi}

	if current.Year != 0 {
		p.selected = choiceCalendarYear
	}

	for c, v := range choiceViews {
		if v == current.View {
			p.selected = c
		}
	}

	return p
}

func (m SelectionPicker) Update(msg tea.Msg) (SelectionPicker, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case selectionStateList:
			return m.updateList(msg)
		case selectionStateYear:
			return m.updateYear(msg)
		}
	}

	return m, nil
}

func (m SelectionPicker) updateList(msg tea.KeyMsg) (SelectionPicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > choiceWeek {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < choiceCalendarYear {
			m.selected++
		}
	case tea.KeyEnter:
		if m.selected == choiceCalendarYear {
			m.state = selectionStateYear
			m.yearInput.Focus()

			return m, textinput.Blink
		}

		sel := m.current.SelectView(choiceViews[m.selected])

		return m, func() tea.Msg { return SelectionMsg{Selection: sel} }
	}

	return m, nil
}

func (m SelectionPicker) updateYear(msg tea.KeyMsg) (SelectionPicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		sel, err := metrics.ParseSelection("", m.yearInput.Value())
		if err != nil {
			m.err = fmt.Errorf("enter a four-digit year")
			return m, nil
		}

		m.err = nil

		return m, func() tea.Msg { return SelectionMsg{Selection: sel} }
	case tea.KeyEsc:
		m.state = selectionStateList
		m.err = nil
		m.yearInput.Blur()

		return m, nil
	}

	var cmd tea.Cmd
	m.yearInput, cmd = m.yearInput.Update(msg)

	return m, cmd
}

func (m SelectionPicker) View() string {
	errStr := ""
	if m.err != nil {
		errStr = "\n\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	if m.state == selectionStateYear {
		return fmt.Sprintf("Enter Calendar Year:\n\n%s\n\n(Enter to confirm, Esc to back)%s", m.yearInput.View(), errStr)
	}

	s := "Select Window:\n\n"
	for c := choiceWeek; c <= choiceCalendarYear; c++ {
		cursor := " "
		if m.selected == c {
			cursor = ">"
		}

		label := c.String()
		if c == choiceCalendarYear && m.current.Year != 0 {
			label = "Calendar Year " + strconv.Itoa(m.current.Year)
		}

		s += fmt.Sprintf("%s %s\n", cursor, label)
	}

	return s + "\n(Enter to select, Esc to back)" + errStr
}

// IsListing returns true while the list of windows is shown.
func (m SelectionPicker) IsListing() bool {
	return m.state == selectionStateList
}
