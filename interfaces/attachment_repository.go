package interfaces

import (
	"context"

	"github.com/makedealcrm/dealstack/internal/models"
)

type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.EmailAttachment) (string, error)
	ListByMessage(ctx context.Context, messageID string) ([]*models.EmailAttachment, error)
	LinkToDeal(ctx context.Context, messageID, dealID string) error
}
