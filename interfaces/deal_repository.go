package interfaces

import (
	"context"

	"github.com/makedealcrm/dealstack/internal/models"
)

type DealRepository interface {
	Create(ctx context.Context, deal *models.Deal) (string, error)
	GetByID(ctx context.Context, id string) (*models.Deal, error)
	Update(ctx context.Context, deal *models.Deal) error
	// FindCandidates returns open deals matching any of: same name,
	// same account name, or amount within 10 percent. Most recently
	// updated first.
	FindCandidates(ctx context.Context, name, accountName string, amount float64) ([]*models.Deal, error)
	AppendPipelineNote(ctx context.Context, dealID string, line string) error
}
