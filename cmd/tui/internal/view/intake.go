package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/intake"
	"github.com/invisifeed/invisifeed/internal/invoice"
)

type intakeStage int

const (
	intakeStageMenu intakeStage = iota
	intakeStagePick
	intakeStageHeader
	intakeStageItem
	intakeStageCoupon
	intakeStageWorking
	intakeStageOutcome
)

const (
	intakeUpload = iota
	intakeCreate
	intakeCoupon
	intakeDiscard
)

var intakeOptions = []string{"Upload a PDF invoice", "Fill in a new invoice", "Add or edit a coupon", "Remove the coupon"}

// headerValues and itemValues back the huh forms. They are held by pointer so
// every copy of the model edits the same values.
type headerValues struct {
	Number          string
	InvoiceDate     string
	DueDate         string
	PaymentTerms    string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	Method          string
	BankDetails     string
	Notes           string
}

type itemValues struct {
	Description string
	Quantity    string
	Rate        string
	Discount    string
	Tax         string
	More        bool
}

type processResultMsg struct {
	res invoice.ProcessResult
	err error
}

type emailResultMsg struct {
	err error
}

type IntakeModel struct {
	CommonModel
	client *apiclient.Client
	ctl    intake.Controller

	stage  intakeStage
	cursor int
	flow   intake.Model

	filePicker filepicker.Model
	form       *huh.Form
	header     *headerValues
	item       *itemValues
	draft      *coupon.Draft
	invoice    intake.Form

	spinner spinner.Model
	notice  string
}

func NewIntakeModel(client *apiclient.Client, maxUploadBytes int64) IntakeModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".pdf"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return IntakeModel{
		client:     client,
		ctl:        intake.NewController(maxUploadBytes),
		flow:       intake.New(),
		filePicker: fp,
		spinner:    s,
	}
}

func (m IntakeModel) Title() string { return "New Invoice" }

func (m IntakeModel) ShortHelp() string {
	switch m.stage {
	case intakeStageWorking:
		return "Generating invoice..."
	case intakeStageOutcome:
		if m.ctl.CanEmail(m.flow) {
			return "e: e-mail customer | Enter: done | Esc: back to menu"
		}

		return "Enter: done | Esc: back to menu"
	}

	return "Esc: back | Enter: select"
}

func (m IntakeModel) Init() tea.Cmd {
	return nil
}

// Reset clears the flow after the business's data was reset.
func (m IntakeModel) Reset() (IntakeModel, tea.Cmd) {
	next, update := m.ctl.Reset(m.flow)

	m.flow = next
	m.stage = intakeStageMenu
	m.invoice = intake.Form{}
	m.notice = ""

	return m, updateSession(update)
}

func (m IntakeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case processResultMsg:
		if msg.err != nil {
			m.flow = m.ctl.Fail(m.flow, m.Session, msg.err)
			m.stage = intakeStageOutcome

			return m, signedOut(msg.err)
		}

		next, update := m.ctl.Resolve(m.flow, msg.res)
		m.flow = next
		m.invoice = intake.Form{}
		m.stage = intakeStageOutcome

		return m, updateSession(update)

	case emailResultMsg:
		if msg.err != nil {
			m.flow = m.ctl.EmailFailed(m.flow)
			m.notice = errorStyle.Render(fmt.Sprintf("E-mail failed: %v", msg.err))

			return m, signedOut(msg.err)
		}

		m.flow = m.ctl.MarkEmailSent(m.flow)
		m.notice = successStyle.Render("Invoice e-mailed to the customer.")

		return m, nil
	}

	switch m.stage {
	case intakeStageMenu:
		return m.updateMenu(msg)
	case intakeStagePick:
		return m.updatePick(msg)
	case intakeStageHeader, intakeStageItem, intakeStageCoupon:
		return m.updateForm(msg)
	case intakeStageWorking:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case intakeStageOutcome:
		return m.updateOutcome(msg)
	}

	return m, nil
}

func (m IntakeModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyEsc:
		return m, Back
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(intakeOptions)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		m.notice = ""
		m.flow.UpgradePrompt, m.flow.ProfilePrompt = false, false

		if !m.ctl.CanSubmit(m.flow, m.Session) && m.cursor <= intakeCreate {
			m.notice = warnStyle.Render(limitNotice(m.Session.DailyLimit))
			return m, nil
		}

		switch m.cursor {
		case intakeUpload:
			m.stage = intakeStagePick
			return m, m.filePicker.Init()
		case intakeCreate:
			m.header = m.newHeader()
			m.invoice = intake.Form{Business: m.businessParty()}
			m.form = m.buildHeaderForm()
			m.stage = intakeStageHeader

			return m, m.form.Init()
		case intakeCoupon:
			m.flow = m.ctl.EditCoupon(m.flow, m.Session)
			if m.flow.Coupon.Status != intake.CouponEditing {
				return m, nil
			}

			d := m.flow.Coupon.Draft
			m.draft = &d
			m.form = m.buildCouponForm()
			m.stage = intakeStageCoupon

			return m, m.form.Init()
		case intakeDiscard:
			m.flow = m.ctl.DiscardCoupon(m.flow)
			m.notice = mutedStyle.Render("Coupon removed.")
		}
	}

	return m, nil
}

func (m IntakeModel) updatePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.stage = intakeStageMenu
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	didSelect, path := m.filePicker.DidSelectFile(msg)
	if !didSelect {
		return m, cmd
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.notice = errorStyle.Render(fmt.Sprintf("Cannot read %s: %v", path, err))
		m.stage = intakeStageMenu

		return m, nil
	}

	file := intake.File{Name: filepath.Base(path), Data: data}

	m.flow = m.ctl.BeginUpload(m.flow, m.Session, file)
	if _, ok := m.flow.State.(intake.Uploading); !ok {
		m.stage = intakeStageOutcome
		return m, nil
	}

	m.stage = intakeStageWorking

	return m, tea.Batch(m.spinner.Tick, m.uploadCmd(file, m.ctl.CouponForSubmit(m.flow)))
}

func (m IntakeModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.stage = intakeStageMenu
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	switch m.stage {
	case intakeStageHeader:
		m.invoice = m.header.apply(m.invoice)
		m.item = &itemValues{Quantity: "1", Discount: "0", Tax: "0"}
		m.form = m.buildItemForm()
		m.stage = intakeStageItem

		return m, m.form.Init()

	case intakeStageItem:
		m.invoice = m.invoice.AddItem()
		m.invoice = m.invoice.SetItem(len(m.invoice.Items)-1, intake.ItemInput{
			Description: m.item.Description,
			Quantity:    m.item.Quantity,
			Rate:        m.item.Rate,
			Discount:    m.item.Discount,
			Tax:         m.item.Tax,
		})

		if m.item.More {
			m.item = &itemValues{Quantity: "1", Discount: "0", Tax: "0"}
			m.form = m.buildItemForm()

			return m, m.form.Init()
		}

		return m.submitCreate()

	case intakeStageCoupon:
		m.flow = m.ctl.SetCoupon(m.flow, *m.draft)
		m.flow = m.ctl.SaveCoupon(m.flow)

		if m.flow.Coupon.Status != intake.CouponSaved {
			d := m.flow.Coupon.Draft
			m.draft = &d
			m.form = m.buildCouponForm()

			return m, m.form.Init()
		}

		m.notice = successStyle.Render(fmt.Sprintf("Coupon %s will be attached to the next invoice.", m.flow.Coupon.Draft.Code))
		m.stage = intakeStageMenu
	}

	return m, nil
}

func (m IntakeModel) submitCreate() (tea.Model, tea.Cmd) {
	m.flow = m.ctl.BeginCreate(m.flow, m.Session, m.invoice)

	s, ok := m.flow.State.(intake.Submitting)
	if !ok {
		m.stage = intakeStageOutcome
		return m, nil
	}

	params, err := s.Form.Params()
	if err != nil {
		m.flow = m.ctl.Fail(m.flow, m.Session, err)
		m.stage = intakeStageOutcome

		return m, nil
	}

	m.stage = intakeStageWorking

	return m, tea.Batch(m.spinner.Tick, m.createCmd(params, m.ctl.CouponForSubmit(m.flow)))
}

func (m IntakeModel) updateOutcome(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "e":
		next, ok := m.ctl.BeginEmail(m.flow)
		if !ok {
			return m, nil
		}

		m.flow = next
		res, _ := m.flow.Result()
		m.notice = mutedStyle.Render("Sending e-mail...")

		return m, m.emailCmd(res.InvoiceNumber)
	case "enter", "esc":
		m.flow = m.ctl.Dismiss(m.flow)
		m.stage = intakeStageMenu
		m.notice = ""
	}

	return m, nil
}

func (m IntakeModel) newHeader() *headerValues {
	return &headerValues{InvoiceDate: time.Now().Format(time.DateOnly)}
}

func (m IntakeModel) businessParty() invoice.Party {
	s := m.Session

	return invoice.Party{
		Name:    s.BusinessName,
		Email:   s.Email,
		Phone:   s.PhoneNumber,
		Address: strings.Join(nonEmpty(s.Address.LocalAddress, s.Address.City, s.Address.State, s.Address.Pincode, s.Address.Country), ", "),
	}
}

func (h *headerValues) apply(f intake.Form) intake.Form {
	f.Number = h.Number
	f.InvoiceDate = h.InvoiceDate
	f.DueDate = h.DueDate
	f.PaymentTerms = h.PaymentTerms
	f.Customer = invoice.Party{
		Name:    h.CustomerName,
		Email:   h.CustomerEmail,
		Phone:   h.CustomerPhone,
		Address: h.CustomerAddress,
	}
	f.Payment = invoice.PaymentDetails{Method: h.Method, BankDetails: h.BankDetails}
	f.Notes = h.Notes

	return f
}

func (m IntakeModel) buildHeaderForm() *huh.Form {
	h := m.header

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Invoice number").Description("Leave empty to generate one").Value(&h.Number),
			huh.NewInput().Title("Invoice date").Placeholder("YYYY-MM-DD").Value(&h.InvoiceDate),
			huh.NewInput().Title("Due date").Placeholder("YYYY-MM-DD").Value(&h.DueDate),
			huh.NewInput().Title("Payment terms").Placeholder("Net 15").Value(&h.PaymentTerms),
		).Title("Invoice"),
		huh.NewGroup(
			huh.NewInput().Title("Customer name").Value(&h.CustomerName).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Customer e-mail").Value(&h.CustomerEmail),
			huh.NewInput().Title("Customer phone").Value(&h.CustomerPhone),
			huh.NewText().Title("Customer address").Lines(2).Value(&h.CustomerAddress),
		).Title("Customer"),
		huh.NewGroup(
			huh.NewInput().Title("Payment method").Placeholder("Bank transfer").Value(&h.Method),
			huh.NewText().Title("Bank details").Lines(2).Value(&h.BankDetails),
			huh.NewText().Title("Notes").Lines(3).Value(&h.Notes),
		).Title("Payment"),
	).WithWidth(60).WithShowHelp(false)
}

func (m IntakeModel) buildItemForm() *huh.Form {
	it := m.item

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Description").Value(&it.Description).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Quantity").Value(&it.Quantity),
			huh.NewInput().Title("Rate").Value(&it.Rate),
			huh.NewInput().Title("Discount %").Value(&it.Discount),
			huh.NewInput().Title("Tax %").Value(&it.Tax),
			huh.NewConfirm().Title("Add another item?").Value(&it.More),
		).Title(fmt.Sprintf("Item %d", len(m.invoice.Items)+1)),
	).WithWidth(60).WithShowHelp(false)
}

func (m IntakeModel) buildCouponForm() *huh.Form {
	d := m.draft

	desc := "Shown to the customer after they leave feedback"
	if errs := m.flow.Coupon.Errors; len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Field + " " + e.Message
		}

		desc = errorStyle.Render(strings.Join(msgs, "; "))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Code").Description("Letters and digits, a suffix is added").Value(&d.Code),
			huh.NewInput().Title("Description").Value(&d.Description),
			huh.NewInput().Title("Valid for (days)").Placeholder("30").Value(&d.ExpiryDays),
		).Title("Coupon").Description(desc),
	).WithWidth(60).WithShowHelp(false)
}

func (m IntakeModel) uploadCmd(file intake.File, draft *coupon.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		res, err := m.client.Upload(ctx, file.Name, file.Data, draft)

		return processResultMsg{res: res, err: err}
	}
}

func (m IntakeModel) createCmd(params invoice.CreateParams, draft *coupon.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()

		res, err := m.client.Create(ctx, params, draft)

		return processResultMsg{res: res, err: err}
	}
}

func (m IntakeModel) emailCmd(number string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		return emailResultMsg{err: m.client.Email(ctx, number)}
	}
}

func (m IntakeModel) View() string {
	var body string

	switch m.stage {
	case intakeStageMenu:
		body = m.viewMenu()
	case intakeStagePick:
		body = "Pick a PDF invoice:\n\n" + m.filePicker.View()
	case intakeStageHeader, intakeStageItem, intakeStageCoupon:
		body = m.form.View()
		if m.stage == intakeStageItem && len(m.invoice.Items) > 0 {
			body += "\n" + mutedStyle.Render(fmt.Sprintf("%d item(s), total so far %s",
				len(m.invoice.Items), FormatAmount(m.invoice.Totals.GrandTotal)))
		}
	case intakeStageWorking:
		body = fmt.Sprintf("%s Generating the invoice with its feedback page...", m.spinner.View())
	case intakeStageOutcome:
		body = m.viewOutcome()
	}

	if m.notice != "" {
		body += "\n\n" + m.notice
	}

	return pad.Render(body)
}

func (m IntakeModel) viewMenu() string {
	s := titleStyle.Render("New Invoice") + "\n"
	s += mutedStyle.Render(fmt.Sprintf("Used %d of %d invoices in the current window", m.Session.DailyUploadCount, m.Session.DailyLimit)) + "\n\n"

	for i, label := range intakeOptions {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, label)
	}

	if m.flow.Coupon.Status == intake.CouponSaved {
		d := m.flow.Coupon.Draft
		s += "\n" + successStyle.Render(fmt.Sprintf("Coupon ready: %s (%s, %s days)", d.Code, d.Description, d.ExpiryDays))
	}

	return s + m.viewPrompts()
}

func (m IntakeModel) viewPrompts() string {
	s := ""

	if m.flow.UpgradePrompt {
		s += "\n\n" + warnStyle.Render("Upgrade to Pro for coupons and a higher daily limit (start the free trial from Profile).")
	}

	if m.flow.ProfilePrompt {
		s += "\n\n" + warnStyle.Render(profileNotice)
	}

	return s
}

func (m IntakeModel) viewOutcome() string {
	if f, ok := m.flow.Failure(); ok {
		lines := []string{errorStyle.Render("Could not create the invoice"), "", f.Message}

		for _, fe := range f.Fields {
			lines = append(lines, fmt.Sprintf("  %s %s", fe.Field, fe.Message))
		}

		if f.Kind == intake.FailureLimit && f.ResetsIn > 0 {
			lines = append(lines, "", fmt.Sprintf("The limit resets in %s.", FormatDuration(f.ResetsIn)))
		}

		return lipgloss.JoinVertical(lipgloss.Left, lines...) + m.viewPrompts()
	}

	res, ok := m.flow.Result()
	if !ok {
		return ""
	}

	lines := []string{
		successStyle.Bold(true).Render(fmt.Sprintf("Invoice %s is ready", res.InvoiceNumber)),
		"",
		fmt.Sprintf("PDF:          %s", res.PDFURL),
		fmt.Sprintf("Feedback:     %s", res.FeedbackURL),
		fmt.Sprintf("Customer:     %s %s", res.CustomerName, res.CustomerEmail),
		fmt.Sprintf("Amount:       %s", FormatAmount(res.CustomerAmount)),
		fmt.Sprintf("Usage:        %d of %d", res.DailyUploadCount, res.DailyLimit),
	}

	if res.Coupon != nil {
		lines = append(lines, fmt.Sprintf("Coupon:       %s (expires %s)", res.Coupon.Code, FormatDate(res.Coupon.ExpiryDate)))
	}

	if m.flow.EmailSent {
		lines = append(lines, "", mutedStyle.Render("Already e-mailed."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
