package models

import (
	"time"
)

// DealContact links a contact to a deal. Duplicate pairs are rejected
// by the composite primary key.
type DealContact struct {
	DealID    string    `gorm:"column:deal_id;primaryKey;type:varchar(50)" json:"dealId"`
	ContactID string    `gorm:"column:contact_id;primaryKey;type:varchar(50)" json:"contactId"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (DealContact) TableName() string {
	return "deal_contacts"
}
