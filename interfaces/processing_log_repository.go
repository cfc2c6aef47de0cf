package interfaces

import (
	"context"

	"github.com/makedealcrm/dealstack/internal/enum"
	"github.com/makedealcrm/dealstack/internal/models"
)

type ProcessingLogRepository interface {
	Create(ctx context.Context, entry *models.ProcessingLog) (string, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.ProcessingLog, error)
	ExistsWithOutcome(ctx context.Context, messageID string, outcomes ...enum.ProcessingOutcome) (bool, error)
}
