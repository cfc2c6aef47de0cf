package dto

import (
	"github.com/makedealcrm/dealstack/internal/enum"
)

const (
	EventEmailProcessed = "email.processed"
)

// EmailProcessed is published after the pipeline finishes a message
type EmailProcessed struct {
	MessageID string                 `json:"messageId"`
	Outcome   enum.ProcessingOutcome `json:"outcome"`
	DealID    string                 `json:"dealId,omitempty"`
	DealName  string                 `json:"dealName,omitempty"`
	ThreadID  string                 `json:"threadId,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
