package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"nstools/lib/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("nstools.lib.notify")

type EmailConfig struct {
	Server   string   `json:"server"`
	Port     int      `json:"port"`
	Address  string   `json:"address"`
	Password string   `json:"password"`
	To       []string `json:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (c EmailConfig) Enabled() bool {
	return c.Server != "" && c.Address != "" && len(c.To) > 0
}

func (c EmailConfig) addr() string {
	port := c.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", c.Server, port)
}

// Attachment is a file sent along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

type Mailer struct {
	config EmailConfig
}

func NewMailer(config EmailConfig) Mailer {
	return Mailer{config: config}
}

// Message builds the mail Send would deliver.
func (m Mailer) Message(subject, body string, attachments ...Attachment) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("nstools <%s>", m.config.Address)
	mail.To = m.config.To
	mail.Subject = subject
	mail.Text = []byte(body)
	for _, a := range attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		_, err := mail.Attach(bytes.NewReader(a.Content), a.Name, contentType)
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	return mail, nil
}

func (m Mailer) Send(ctx context.Context, subject, body string, attachments ...Attachment) error {
	ctx, span := tracer.Start(ctx, "Send")
	defer span.End()

	if !m.config.Enabled() {
		return fmt.Errorf("email is not configured")
	}
	mail, err := m.Message(subject, body, attachments...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build email")
		return err
	}

	err = mail.Send(m.config.addr(), smtp.PlainAuth("", m.config.Address, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(m.config.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
