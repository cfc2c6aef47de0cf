package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/internal/utils"
)

type DealNote struct {
	ID      string `gorm:"column:id;primaryKey;type:varchar(50)" json:"id"`
	DealID  string `gorm:"column:deal_id;type:varchar(50);index" json:"dealId"`
	Subject string `gorm:"column:subject;type:varchar(255)" json:"subject"`
	Body    string `gorm:"column:body;type:text" json:"body"`

	// MessageID of the email that produced this note, when there was one
	MessageID string `gorm:"column:message_id;type:varchar(255);index" json:"messageId"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (DealNote) TableName() string {
	return "deal_notes"
}

func (n *DealNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = utils.GenerateNanoIDWithPrefix("note", 16)
	}
	return nil
}
