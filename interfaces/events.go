package interfaces

import (
	"context"
)

type NotificationPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}
