package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/session"
)

const apiTimeout = 15 * time.Second

// uploadTimeout covers PDF rendering and storage on the server.
const uploadTimeout = 90 * time.Second

// FormatAmount renders a money amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.DateOnly)
}

// FormatDuration renders a wait like "5h 12m".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}

	d = d.Round(time.Minute)
	h, m := int(d.Hours()), int(d.Minutes())%60

	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}

	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatUsage renders the upload counter of the current window.
func FormatUsage(s session.Snapshot) string {
	if s.DailyLimit <= 0 {
		return fmt.Sprintf("%d invoices today", s.DailyUploadCount)
	}

	return fmt.Sprintf("%d of %d invoices today", s.DailyUploadCount, s.DailyLimit)
}

const profileNotice = "Complete your business profile first (see Profile)."

func limitNotice(limit int) string {
	return fmt.Sprintf("Daily limit of %d invoices reached.", limit)
}

// APICtx returns a context with a standard timeout for API calls.
func APICtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), apiTimeout)
}

// signedOut turns an expired session into a SignedOutMsg.
func signedOut(err error) tea.Cmd {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return func() tea.Msg { return SignedOutMsg{} }
	}

	return nil
}
