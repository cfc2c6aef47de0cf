package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/internal/utils"
)

type Deal struct {
	ID   string `gorm:"column:id;primaryKey;type:varchar(50)" json:"id"`
	Name string `gorm:"column:name;type:varchar(255);index" json:"name"`

	// Amount of zero means no asking price was extracted
	Amount        float64 `gorm:"column:amount" json:"amount"`
	AccountName   string  `gorm:"column:account_name;type:varchar(255);index" json:"accountName"`
	Industry      string  `gorm:"column:industry;type:varchar(100)" json:"industry"`
	AnnualRevenue float64 `gorm:"column:annual_revenue" json:"annualRevenue"`
	Ebitda        float64 `gorm:"column:ebitda" json:"ebitda"`
	Description   string  `gorm:"column:description;type:text" json:"description"`
	DealSource    string  `gorm:"column:deal_source;type:varchar(50)" json:"dealSource"`

	ExpectedCloseAt *time.Time `gorm:"column:expected_close_at" json:"expectedCloseAt,omitempty"`
	PipelineStage   string     `gorm:"column:pipeline_stage;type:varchar(50)" json:"pipelineStage"`
	SalesStage      string     `gorm:"column:sales_stage;type:varchar(50)" json:"salesStage"`
	Probability     int        `gorm:"column:probability" json:"probability"`
	PipelineNotes   string     `gorm:"column:pipeline_notes;type:text" json:"pipelineNotes"`

	AssignedUserID string `gorm:"column:assigned_user_id;type:varchar(50);index" json:"assignedUserId"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Deal) TableName() string {
	return "deals"
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = utils.GenerateNanoIDWithPrefix("deal", 16)
	}
	return nil
}
