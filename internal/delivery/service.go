package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/invoice"
)

var (
	ErrNoRecipient = errors.New("invoice has no customer email")
	ErrNoDocument  = errors.New("invoice has no stored pdf")
	ErrDisabled    = errors.New("e-mail delivery is not configured")
)

// maxAttachmentBytes matches the provider's attachment limit.
const maxAttachmentBytes = 20 << 20

//go:generate mockgen -source=service.go -destination=mailer_mock.go -package=delivery
type Invoices interface {
	Get(ctx context.Context, businessID uuid.UUID, number string) (*invoice.Invoice, error)
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Message struct {
	To          string
	ToName      string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Service struct {
	invoices Invoices
	mailer   Mailer
	client   *http.Client
}

func NewService(invoices Invoices, mailer Mailer) *Service {
	return &Service{
		invoices: invoices,
		mailer:   mailer,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Send e-mails the smart invoice to its customer with the stored PDF attached.
func (s *Service) Send(ctx context.Context, businessID uuid.UUID, number string) error {
	inv, err := s.invoices.Get(ctx, businessID, number)
	if err != nil {
		return err
	}

	if strings.TrimSpace(inv.Customer.Email) == "" {
		return ErrNoRecipient
	}

	if inv.PDFURL == "" {
		return ErrNoDocument
	}

	pdf, err := s.download(ctx, inv.PDFURL)
	if err != nil {
		return fmt.Errorf("downloading invoice %s: %w", inv.Number, err)
	}

	msg, err := compose(inv)
	if err != nil {
		return err
	}

	msg.Attachments = []Attachment{{
		Filename:    filename(inv.Number),
		ContentType: "application/pdf",
		Data:        pdf,
	}}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending invoice %s: %w", inv.Number, err)
	}

	slog.Info("invoice emailed", "business_id", businessID, "invoice", inv.Number)

	return nil
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for url %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if len(data) > maxAttachmentBytes {
		return nil, fmt.Errorf("pdf exceeds %d bytes", maxAttachmentBytes)
	}

	return data, nil
}

// filename keeps letters, digits, dashes and underscores of the invoice number.
func filename(number string) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, number)

	if safe == "" {
		safe = "invoice"
	}

	return safe + ".pdf"
}

var body = template.Must(template.New("email").Parse(`<p>Hi {{.Customer.Name}},</p>
<p>Please find attached invoice <strong>{{.Number}}</strong> from {{.Business.Name}}.</p>
<p>You can also <a href="{{.PDFURL}}">view it online</a>.</p>
{{with .FeedbackURL}}<p>We would love to hear how we did. <a href="{{.}}">Leave anonymous feedback</a>; it takes less than a minute.</p>{{end}}
<p>Thank you,<br>{{.Business.Name}}</p>
`))

func compose(inv *invoice.Invoice) (Message, error) {
	var html bytes.Buffer
	if err := body.Execute(&html, inv); err != nil {
		return Message{}, fmt.Errorf("rendering email: %w", err)
	}

	var text strings.Builder

	fmt.Fprintf(&text, "Hi %s,\n\n", inv.Customer.Name)
	fmt.Fprintf(&text, "Please find attached invoice %s from %s.\n", inv.Number, inv.Business.Name)
	fmt.Fprintf(&text, "View it online: %s\n", inv.PDFURL)

	if inv.FeedbackURL != "" {
		fmt.Fprintf(&text, "\nLeave anonymous feedback: %s\n", inv.FeedbackURL)
	}

	fmt.Fprintf(&text, "\nThank you,\n%s\n", inv.Business.Name)

	return Message{
		To:      strings.TrimSpace(inv.Customer.Email),
		ToName:  inv.Customer.Name,
		ReplyTo: inv.Business.Email,
		Subject: fmt.Sprintf("Invoice %s from %s", inv.Number, inv.Business.Name),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
