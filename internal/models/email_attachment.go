package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/internal/utils"
)

type EmailAttachment struct {
	ID          string `gorm:"column:id;primaryKey;type:varchar(50)" json:"id"`
	MessageID   string `gorm:"column:message_id;type:varchar(255);index" json:"messageId"`
	DealID      string `gorm:"column:deal_id;type:varchar(50);index" json:"dealId"`
	Filename    string `gorm:"column:filename;type:varchar(255)" json:"filename"`
	ContentType string `gorm:"column:content_type;type:varchar(100)" json:"contentType"`
	Size        int64  `gorm:"column:size" json:"size"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (a *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("att", 16)
	}
	return nil
}
