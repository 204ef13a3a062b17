package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/invisifeed/invisifeed/internal/apiclient"
	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/gstin"
	"github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/session"
)

type profileStage int

const (
	profileStageOverview profileStage = iota
	profileStageEdit
	profileStageGSTIN
	profileStageTrial
)

type profileValues struct {
	BusinessName string
	PhoneNumber  string
	Country      string
	State        string
	City         string
	LocalAddress string
	Pincode      string
}

type gstinValues struct {
	Number string
}

type profileSavedMsg struct {
	profile *profile.Response
	notice  string
	err     error
}

type gstinVerifiedMsg struct {
	number string
	result *gstin.Result
	err    error
}

type ProfileModel struct {
	CommonModel
	client *apiclient.Client

	stage    profileStage
	form     *huh.Form
	values   *profileValues
	gstin    *gstinValues
	confirm  *bool
	verified *gstinVerifiedMsg

	busy   bool
	status string
}

func NewProfileModel(client *apiclient.Client) ProfileModel {
	return ProfileModel{client: client}
}

func (m ProfileModel) Title() string { return "Profile" }

func (m ProfileModel) ShortHelp() string {
	if m.stage != profileStageOverview {
		return "Esc: cancel"
	}

	return "e: edit | s: skip | g: GSTIN | t: pro trial | Esc: back"
}

func (m ProfileModel) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m ProfileModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case profileSavedMsg:
		m.busy = false

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Error: %v", msg.err))
			return m, signedOut(msg.err)
		}

		m.status = msg.notice
		if m.status != "" {
			m.status = successStyle.Render(m.status)
		}

		return m, updateSession(session.Refreshed{Snapshot: apiclient.ProfileSnapshot(*msg.profile)})

	case gstinVerifiedMsg:
		m.busy = false

		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Verification failed: %v", msg.err))
			return m, signedOut(msg.err)
		}

		if !msg.result.Valid {
			m.status = errorStyle.Render(fmt.Sprintf("GSTIN %s is not valid: %s", msg.number, msg.result.Message))
			return m, nil
		}

		m.verified = &msg
		m.confirm = new(bool)
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Save GSTIN %s (%s)?", msg.number, msg.result.TradeName)).
				Value(m.confirm),
		)).WithWidth(60).WithShowHelp(false)
		m.stage = profileStageGSTIN

		return m, m.form.Init()
	}

	if m.stage != profileStageOverview {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.busy {
		return m, nil
	}

	m.status = ""

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "e":
		m.values = m.currentValues()
		m.form = m.buildEditForm()
		m.stage = profileStageEdit

		return m, m.form.Init()
	case "s":
		if m.Session.ProfileStatus != business.ProfileIncomplete {
			return m, nil
		}

		m.busy = true

		return m, m.call("Profile skipped. You can complete it any time.", m.client.SkipProfile)
	case "g":
		m.gstin = &gstinValues{Number: m.Session.GSTIN.Number}
		m.verified = nil
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("GSTIN").
				Description("15 characters, for example 27AAPFU0939F1ZV").
				CharLimit(15).
				Value(&m.gstin.Number).
				Validate(func(s string) error {
					return gstin.ValidateFormat(gstin.Normalize(s))
				}),
		)).WithWidth(60).WithShowHelp(false)
		m.stage = profileStageGSTIN

		return m, m.form.Init()
	case "t":
		if m.Session.ProTrialUsed || m.Session.IsPro(time.Now()) {
			m.status = warnStyle.Render("The pro trial is only available once, on the free plan.")
			return m, nil
		}

		m.confirm = new(bool)
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Start the 7-day pro trial?").
				Description("Coupons, sales analysis and a higher daily limit. The trial can only be used once.").
				Value(m.confirm),
		)).WithWidth(60).WithShowHelp(false)
		m.stage = profileStageTrial

		return m, m.form.Init()
	}

	return m, nil
}

func (m ProfileModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.stage = profileStageOverview
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	stage := m.stage
	m.stage = profileStageOverview
	m.busy = true

	switch stage {
	case profileStageEdit:
		update := m.values.diff(m.currentValues())
		return m, m.updateCmd(update)

	case profileStageGSTIN:
		if m.verified == nil {
			number := gstin.Normalize(m.gstin.Number)
			return m, m.verifyCmd(number)
		}

		if !*m.confirm {
			m.busy = false
			return m, nil
		}

		number := m.verified.number

		return m, m.call("GSTIN saved.", func(ctx context.Context) (*profile.Response, error) {
			return m.client.SaveGSTIN(ctx, number)
		})

	case profileStageTrial:
		if !*m.confirm {
			m.busy = false
			return m, nil
		}

		return m, m.call("Pro trial started.", m.client.StartTrial)
	}

	m.busy = false

	return m, nil
}

func (m ProfileModel) currentValues() *profileValues {
	s := m.Session

	return &profileValues{
		BusinessName: s.BusinessName,
		PhoneNumber:  s.PhoneNumber,
		Country:      s.Address.Country,
		State:        s.Address.State,
		City:         s.Address.City,
		LocalAddress: s.Address.LocalAddress,
		Pincode:      s.Address.Pincode,
	}
}

// diff keeps only the fields that changed.
func (v *profileValues) diff(old *profileValues) business.ProfileUpdate {
	pick := func(next, prev string) *string {
		next = strings.TrimSpace(next)
		if next == prev {
			return nil
		}

		return &next
	}

	return business.ProfileUpdate{
		BusinessName: pick(v.BusinessName, old.BusinessName),
		PhoneNumber:  pick(v.PhoneNumber, old.PhoneNumber),
		Country:      pick(v.Country, old.Country),
		State:        pick(v.State, old.State),
		City:         pick(v.City, old.City),
		LocalAddress: pick(v.LocalAddress, old.LocalAddress),
		Pincode:      pick(v.Pincode, old.Pincode),
	}
}

func (m ProfileModel) buildEditForm() *huh.Form {
	v := m.values

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Business name").Value(&v.BusinessName).Validate(huh.ValidateNotEmpty()),
			huh.NewInput().Title("Phone number").Value(&v.PhoneNumber),
		).Title("Business"),
		huh.NewGroup(
			huh.NewInput().Title("Country").Value(&v.Country),
			huh.NewInput().Title("State").Description("Cleared when the country changes").Value(&v.State),
			huh.NewInput().Title("City").Value(&v.City),
			huh.NewInput().Title("Street address").Value(&v.LocalAddress),
			huh.NewInput().Title("Pincode").Value(&v.Pincode),
		).Title("Address"),
	).WithWidth(60).WithShowHelp(false)
}

func (m ProfileModel) call(notice string, fn func(ctx context.Context) (*profile.Response, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		p, err := fn(ctx)

		return profileSavedMsg{profile: p, notice: notice, err: err}
	}
}

func (m ProfileModel) refreshCmd() tea.Cmd {
	return m.call("", m.client.Profile)
}

func (m ProfileModel) updateCmd(update business.ProfileUpdate) tea.Cmd {
	return m.call("Profile saved.", func(ctx context.Context) (*profile.Response, error) {
		return m.client.UpdateProfile(ctx, update)
	})
}

func (m ProfileModel) verifyCmd(number string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		res, err := m.client.VerifyGSTIN(ctx, number)

		return gstinVerifiedMsg{number: number, result: res, err: err}
	}
}

func (m ProfileModel) View() string {
	if m.stage != profileStageOverview {
		return pad.Render(m.form.View())
	}

	s := m.Session
	now := time.Now()

	plan := string(s.Plan.Name)
	if s.Plan.EndDate != nil && s.IsPro(now) {
		plan += " until " + FormatDate(*s.Plan.EndDate)
	}

	gst := mutedStyle.Render("not set")
	if s.GSTIN.Number != "" {
		gst = s.GSTIN.Number
		if s.GSTIN.Verified {
			gst += " " + successStyle.Render("verified")
		}
	}

	lines := []string{
		titleStyle.Render(s.BusinessName),
		mutedStyle.Render("@" + s.Username + "  " + s.Email),
		"",
		fmt.Sprintf("Profile:   %s", s.ProfileStatus),
		fmt.Sprintf("Phone:     %s", s.PhoneNumber),
		fmt.Sprintf("Address:   %s", strings.Join(nonEmpty(s.Address.LocalAddress, s.Address.City, s.Address.State, s.Address.Pincode, s.Address.Country), ", ")),
		fmt.Sprintf("GSTIN:     %s", gst),
		fmt.Sprintf("Plan:      %s", plan),
		fmt.Sprintf("Usage:     %d of %d", s.DailyUploadCount, s.DailyLimit),
	}

	if m.busy {
		lines = append(lines, "", mutedStyle.Render("Working..."))
	}

	if m.status != "" {
		lines = append(lines, "", m.status)
	}

	return pad.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
