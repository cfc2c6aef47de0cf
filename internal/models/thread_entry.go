package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/internal/utils"
)

// ThreadEntry records one processed email inside a correlated thread.
// The deal binding lives on every entry of the thread and is set once,
// when the thread first resolves to a deal.
type ThreadEntry struct {
	ID        string `gorm:"column:id;primaryKey;type:varchar(50)" json:"id"`
	ThreadID  string `gorm:"column:thread_id;type:varchar(64);index" json:"threadId"`
	MessageID string `gorm:"column:message_id;type:varchar(255);uniqueIndex" json:"messageId"`
	DealID    string `gorm:"column:deal_id;type:varchar(50);index" json:"dealId"`

	Subject      string         `gorm:"column:subject;type:varchar(500)" json:"subject"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index" json:"fromAddress"`
	Participants pq.StringArray `gorm:"column:participants;type:text[]" json:"participants"`

	SentAt     *time.Time     `gorm:"column:sent_at;index" json:"sentAt,omitempty"`
	InReplyTo  string         `gorm:"column:in_reply_to;type:varchar(255);index" json:"inReplyTo"`
	References pq.StringArray `gorm:"column:references_ids;type:text[]" json:"references"`

	Retired bool `gorm:"column:retired;default:false" json:"retired"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (ThreadEntry) TableName() string {
	return "deal_thread_entries"
}

func (t *ThreadEntry) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = utils.GenerateNanoIDWithPrefix("thrent", 16)
	}
	return nil
}
