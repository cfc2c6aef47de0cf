package dto

import (
	"time"

	"github.com/makedealcrm/dealstack/internal/enum"
)

// InboundEmail is the normalized form of a received email, ready for
// the ingestion pipeline.
type InboundEmail struct {
	MessageID string `json:"messageId"`
	Subject   string `json:"subject"`
	BodyText  string `json:"bodyText"`
	BodyHTML  string `json:"bodyHtml"`

	FromName    string   `json:"fromName"`
	FromAddress string   `json:"fromAddress"`
	To          []string `json:"to"`
	Cc          []string `json:"cc"`
	Bcc         []string `json:"bcc"`

	SentAt     *time.Time `json:"sentAt,omitempty"`
	InReplyTo  string     `json:"inReplyTo"`
	References []string   `json:"references"`

	Type     enum.EmailType `json:"type"`
	IsUpdate bool           `json:"isUpdate"`

	Attachments []InboundAttachment `json:"attachments"`
}

type InboundAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// AllRecipients returns to, cc and bcc as one list
func (e *InboundEmail) AllRecipients() []string {
	recipients := make([]string, 0, len(e.To)+len(e.Cc)+len(e.Bcc))
	recipients = append(recipients, e.To...)
	recipients = append(recipients, e.Cc...)
	recipients = append(recipients, e.Bcc...)
	return recipients
}
