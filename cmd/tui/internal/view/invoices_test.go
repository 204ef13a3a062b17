package view

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/business"
	invoicehttp "github.com/invisifeed/invisifeed/internal/http/invoice"
	"github.com/invisifeed/invisifeed/internal/intake"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/session"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, k string) (tea.Model, tea.Cmd) {
	t.Helper()
	return m.Update(key(k))
}

func invoicesModel(sess session.Snapshot) InvoicesModel {
	m := NewInvoicesModel(apiclient.New("http://localhost:0"))
	m.Session = sess
	m.loading = false

	return m
}

func readySession(count, limit int) session.Snapshot {
	return session.Snapshot{
		Token:            "tok",
		ProfileStatus:    business.ProfileCompleted,
		DailyUploadCount: count,
		DailyLimit:       limit,
	}
}

func TestInvoicesModel_Sample(t *testing.T) {
	t.Run("one request at a time", func(t *testing.T) {
		var m tea.Model = invoicesModel(readySession(0, 3))

		m, cmd := press(t, m, "s")
		require.NotNil(t, cmd)
		assert.True(t, m.(InvoicesModel).sampling)

		m, cmd = press(t, m, "s")
		assert.Nil(t, cmd)

		m, _ = m.Update(sampleResultMsg{res: invoice.ProcessResult{InvoiceNumber: "SAMPLE-1", DailyUploadCount: 1, DailyLimit: 3}})
		assert.False(t, m.(InvoicesModel).sampling)
	})

	t.Run("blocked at the limit", func(t *testing.T) {
		m, cmd := press(t, invoicesModel(readySession(3, 3)), "s")
		assert.Nil(t, cmd)
		assert.Contains(t, m.(InvoicesModel).status, "Daily limit of 3 invoices reached.")
	})

	t.Run("blocked with an incomplete profile", func(t *testing.T) {
		sess := readySession(0, 3)
		sess.ProfileStatus = business.ProfileSkipped

		m, cmd := press(t, invoicesModel(sess), "s")
		assert.Nil(t, cmd)
		assert.Contains(t, m.(InvoicesModel).status, profileNotice)
	})
}

func TestInvoicesModel_EmailOneRequestAtATime(t *testing.T) {
	var m tea.Model = invoicesModel(readySession(0, 3))

	m, _ = m.Update(invoicesLoadedMsg{invoices: []invoicehttp.Response{{
		Number:   "INV-1",
		Customer: invoicehttp.PartyResponse{Name: "Globex", Email: "ap@globex.test"},
	}}})

	m, cmd := press(t, m, "e")
	require.NotNil(t, cmd)

	m, cmd = press(t, m, "e")
	assert.Nil(t, cmd)

	m, _ = m.Update(invoiceEmailedMsg{number: "INV-1"})
	assert.False(t, m.(InvoicesModel).sending)

	_, cmd = press(t, m, "e")
	assert.NotNil(t, cmd)
}

func TestIntakeModel_EmailOneRequestAtATime(t *testing.T) {
	sess := readySession(0, 3)

	m := NewIntakeModel(apiclient.New("http://localhost:0"), 0)
	m.Session = sess
	m.flow = m.ctl.BeginUpload(intake.New(), sess, intake.File{Name: "a.pdf", Data: []byte("%PDF-1.7")})

	var model tea.Model
	model, _ = m.Update(processResultMsg{res: invoice.ProcessResult{InvoiceNumber: "INV-1", CustomerEmail: "ap@globex.test"}})

	model, cmd := press(t, model, "e")
	require.NotNil(t, cmd)

	model, cmd = press(t, model, "e")
	assert.Nil(t, cmd)

	model, _ = model.Update(emailResultMsg{})
	assert.True(t, model.(IntakeModel).flow.EmailSent)

	_, cmd = press(t, model, "e")
	assert.Nil(t, cmd)
}
