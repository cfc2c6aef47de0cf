package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/internal/utils"
)

type Contact struct {
	ID        string `gorm:"column:id;primaryKey;type:varchar(50)" json:"id"`
	FirstName string `gorm:"column:first_name;type:varchar(100)" json:"firstName"`
	LastName  string `gorm:"column:last_name;type:varchar(100);index" json:"lastName"`

	// Email is stored lowercased so lookups stay case insensitive
	Email string `gorm:"column:email;type:varchar(255);index" json:"email"`
	Phone string `gorm:"column:phone;type:varchar(50)" json:"phone"`
	Role  string `gorm:"column:role;type:varchar(50)" json:"role"`

	Description    string `gorm:"column:description;type:text" json:"description"`
	LeadSource     string `gorm:"column:lead_source;type:varchar(50)" json:"leadSource"`
	AssignedUserID string `gorm:"column:assigned_user_id;type:varchar(50);index" json:"assignedUserId"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateNanoIDWithPrefix("cont", 16)
	}
	return nil
}
