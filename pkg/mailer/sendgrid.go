package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers through the SendGrid v3 mail send API.
type SendGridSender struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
	timeout    time.Duration
}

// NewSendGridSender builds a sender for the given API key and From identity.
func NewSendGridSender(apiKey, fromName, fromAddress string, timeout time.Duration) *SendGridSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SendGridSender{
		client:     sendgrid.NewSendClient(apiKey),
		from:       sgmail.NewEmail(fromName, fromAddress),
		subjPrefix: "[" + fromName + "] ",
		timeout:    timeout,
	}
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return m
}

// Send posts the message. Non-2xx answers are returned as errors so the caller can retry.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.SendWithContext(ctx, s.prepare(msg))
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
