package repository

import (
	"context"

	"flightsurety-service/internal/domain/entity"
)

// EventPublisher fans committed notifications out to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event) error
}
