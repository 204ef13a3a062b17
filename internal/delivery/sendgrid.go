package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGrid delivers messages through the SendGrid v3 mail API.
type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGrid builds a mailer. host overrides the API origin and is empty in
// production.
func NewSendGrid(apiKey, from, fromName, host string) (*SendGrid, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is empty")
	}

	if from == "" {
		return nil, errors.New("sendgrid from address is empty")
	}

	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
	req.Method = "POST"

	return &SendGrid{
		client: &sendgrid.Client{Request: req},
		from:   mail.NewEmail(fromName, from),
	}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	m := mail.NewSingleEmail(s.from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Text, msg.HTML)

	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(mail.NewAttachment().
			SetContent(base64.StdEncoding.EncodeToString(a.Data)).
			SetType(a.ContentType).
			SetFilename(a.Filename).
			SetDisposition("attachment"))
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	return nil
}

// Disabled stands in for a mailer when no provider is configured.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error {
	return ErrDisabled
}
