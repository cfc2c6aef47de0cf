package interfaces

import (
	"context"

	"github.com/makedealcrm/dealstack/internal/models"
)

type NoteRepository interface {
	Create(ctx context.Context, note *models.DealNote) (string, error)
	ListByDeal(ctx context.Context, dealID string) ([]*models.DealNote, error)
}
