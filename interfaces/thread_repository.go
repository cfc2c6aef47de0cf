package interfaces

import (
	"context"
	"time"

	"github.com/makedealcrm/dealstack/internal/models"
)

type ThreadRepository interface {
	Create(ctx context.Context, entry *models.ThreadEntry) (string, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.ThreadEntry, error)
	ListByThreadID(ctx context.Context, threadID string) ([]*models.ThreadEntry, error)
	// GetThreadDeal returns the deal bound to a thread, empty when the
	// thread has no binding yet.
	GetThreadDeal(ctx context.Context, threadID string) (string, error)
	// FindRecentByAddress returns non-retired entries whose sender or
	// participants include the address, sent after the cutoff.
	FindRecentByAddress(ctx context.Context, address string, since time.Time) ([]*models.ThreadEntry, error)
	RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
