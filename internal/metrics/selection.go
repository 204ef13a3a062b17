package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// View is a rolling dashboard window.
type View string

const (
	ViewCurrentWeek  View = "currentWeek"
	ViewCurrentMonth View = "currentMonth"
	ViewCurrentYear  View = "currentYear"
)

var (
	ErrAmbiguousSelection = errors.New("choose either a view or a year, not both")
	ErrInvalidSelection   = errors.New("invalid dashboard selection")
)

// Selection picks the dashboard window: a view or a calendar year, never both.
type Selection struct {
	View View `json:"view,omitempty"`
	Year int  `json:"year,omitempty"`
}

func DefaultSelection() Selection {
	return Selection{View: ViewCurrentMonth}
}

// SelectView switches to a view and clears any selected year.
func (s Selection) SelectView(v View) Selection {
	return Selection{View: v}
}

// SelectYear switches to a calendar year and clears any selected view.
func (s Selection) SelectYear(year int) Selection {
	return Selection{Year: year}
}

// ParseSelection reads the view and year query values. Both empty yields the
// default selection.
func ParseSelection(view, year string) (Selection, error) {
	switch {
	case view != "" && year != "":
		return Selection{}, ErrAmbiguousSelection
	case year != "":
		y, err := strconv.Atoi(year)
		if err != nil || y < 2000 || y > 9999 {
			return Selection{}, fmt.Errorf("%w: year %q", ErrInvalidSelection, year)
		}

		return Selection{Year: y}, nil
	case view != "":
		switch v := View(view); v {
		case ViewCurrentWeek, ViewCurrentMonth, ViewCurrentYear:
			return Selection{View: v}, nil
		}

		return Selection{}, fmt.Errorf("%w: view %q", ErrInvalidSelection, view)
	}

	return DefaultSelection(), nil
}

// Key identifies the selection in caches.
func (s Selection) Key() string {
	if s.Year != 0 {
		return "year:" + strconv.Itoa(s.Year)
	}

	return "view:" + string(s.View)
}

// Bucket is one point on the time axis; Start is inclusive, End exclusive.
type Bucket struct {
	Label string
	Start time.Time
	End   time.Time
}

// Buckets lays out the time axis for the selection at now. currentWeek is the
// last seven days, currentMonth every day of the month, and years are split
// into months.
func (s Selection) Buckets(now time.Time) []Bucket {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case s.Year != 0:
		return months(s.Year)
	case s.View == ViewCurrentWeek:
		return days(today.AddDate(0, 0, -6), 7, "Mon 02")
	case s.View == ViewCurrentYear:
		return months(now.Year())
	default:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return days(first, first.AddDate(0, 1, -1).Day(), "02")
	}
}

func days(start time.Time, n int, layout string) []Bucket {
	out := make([]Bucket, n)

	for i := range n {
		d := start.AddDate(0, 0, i)
		out[i] = Bucket{Label: d.Format(layout), Start: d, End: d.AddDate(0, 0, 1)}
	}

	return out
}

func months(year int) []Bucket {
	out := make([]Bucket, 12)

	for i := range 12 {
		m := time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		out[i] = Bucket{Label: m.Format("Jan"), Start: m, End: m.AddDate(0, 1, 0)}
	}

	return out
}
