package interfaces

import (
	"context"

	"github.com/makedealcrm/dealstack/internal/models"
)

type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) (string, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	GetByEmail(ctx context.Context, email string) (*models.Contact, error)
	GetByName(ctx context.Context, firstName, lastName string) (*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	LinkToDeal(ctx context.Context, contactID, dealID string) error
}
