package enum

type EmailType string

const (
	EmailInbound  EmailType = "inbound"
	EmailArchived EmailType = "archived"
	EmailOutbound EmailType = "outbound"
	EmailDraft    EmailType = "draft"
)

func (t EmailType) String() string {
	return string(t)
}
