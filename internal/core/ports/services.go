package ports

import (
	"context"

	"github.com/monteverasrl/montevera/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishVehiclePosition(ctx context.Context, vp *domain.VehiclePosition) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// VehicleFeed reads current positions from the GPS provider.
type VehicleFeed interface {
	FleetPositions(ctx context.Context) ([]domain.VehiclePosition, error)
}

// MailSender delivers a contact-form message to the company inbox.
type MailSender interface {
	Send(ctx context.Context, msg *domain.ContactMessage) error
}
