package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makedealcrm/dealstack/internal/enum"
)

const rawTestEmail = "Message-Id: <msg-123@mail.acme.com>\r\n" +
	"In-Reply-To: <msg-100@mail.acme.com>\r\n" +
	"References: <msg-099@mail.acme.com> <msg-100@mail.acme.com>\r\n" +
	"Date: Mon, 12 Jan 2026 09:30:00 +0000\r\n" +
	"From: Jane Doe <jane.doe@acme.com>\r\n" +
	"To: Deal Intake <deals@mycrm>\r\n" +
	"Cc: broker@brokerage.com\r\n" +
	"Subject: Acme Manufacturing Sale\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Asking Price: $2.5M\r\n" +
	"Company: Acme Manufacturing\r\n"

func TestParseRawEmail(t *testing.T) {
	email, err := parseRawEmail([]byte(rawTestEmail))
	require.NoError(t, err)

	assert.Equal(t, "<msg-123@mail.acme.com>", email.MessageID)
	assert.Equal(t, "<msg-100@mail.acme.com>", email.InReplyTo)
	assert.Equal(t, []string{"<msg-099@mail.acme.com>", "<msg-100@mail.acme.com>"}, email.References)
	assert.Equal(t, "Acme Manufacturing Sale", email.Subject)
	assert.Equal(t, "Jane Doe", email.FromName)
	assert.Equal(t, "jane.doe@acme.com", email.FromAddress)
	assert.Equal(t, []string{"deals@mycrm"}, email.To)
	assert.Equal(t, []string{"broker@brokerage.com"}, email.Cc)
	assert.Equal(t, enum.EmailInbound, email.Type)
	assert.Contains(t, email.BodyText, "Asking Price: $2.5M")

	require.NotNil(t, email.SentAt)
	assert.WithinDuration(t, time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC), *email.SentAt, time.Second)
}
