package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	mailer := NewMailer(EmailConfig{
		Server:  "smtp.example.com",
		Address: "bot@example.com",
		To:      []string{"treasurer@example.com"},
	})

	mail, err := mailer.Message("Issue report 2024-03", "See attached.", Attachment{
		Name:    "issuePayoutReport_2024-03.txt",
		Content: []byte("[table][/table]"),
	})
	require.NoError(t, err)
	require.Equal(t, "nstools <bot@example.com>", mail.From)
	require.Equal(t, []string{"treasurer@example.com"}, mail.To)
	require.Len(t, mail.Attachments, 1)

	raw, err := mail.Bytes()
	require.NoError(t, err)
	require.Contains(t, string(raw), "Subject: Issue report 2024-03")
	require.Contains(t, string(raw), "issuePayoutReport_2024-03.txt")
}

func TestSendRequiresConfig(t *testing.T) {
	require.False(t, EmailConfig{Server: "smtp.example.com"}.Enabled())
	err := NewMailer(EmailConfig{}).Send(context.Background(), "subject", "body")
	require.Error(t, err)
}
