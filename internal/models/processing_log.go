package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/makedealcrm/dealstack/internal/enum"
	"github.com/makedealcrm/dealstack/internal/utils"
)

// ProcessingLog is the idempotency ledger. One row per processed
// message ID, regardless of outcome.
type ProcessingLog struct {
	ID        string                 `gorm:"column:id;primaryKey;type:varchar(50)" json:"id"`
	MessageID string                 `gorm:"column:message_id;type:varchar(255);uniqueIndex" json:"messageId"`
	Outcome   enum.ProcessingOutcome `gorm:"column:outcome;type:varchar(30);index" json:"outcome"`
	DealID    string                 `gorm:"column:deal_id;type:varchar(50);index" json:"dealId"`
	Error     string                 `gorm:"column:error;type:text" json:"error"`
	Attempts  int                    `gorm:"column:attempts" json:"attempts"`

	ResultData JSONMap `gorm:"column:result_data;type:jsonb" json:"resultData"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (ProcessingLog) TableName() string {
	return "email_processing_log"
}

func (l *ProcessingLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = utils.GenerateNanoIDWithPrefix("proc", 16)
	}
	return nil
}
