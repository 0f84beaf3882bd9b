package publisher

import (
	"context"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
	"flightsurety-service/pkg/logger"
)

// LogPublisher writes notifications to the structured log
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a publisher that logs every event at info level
func NewLogPublisher(log logger.Logger) repository.EventPublisher {
	return &LogPublisher{
		logger: log.With("component", "notifications"),
	}
}

func (p *LogPublisher) Publish(_ context.Context, event entity.Event) error {
	p.logger.Info("Ledger notification",
		"id", event.ID,
		"type", event.Type,
		"height", event.Height,
		"attributes", event.Attributes,
	)
	return nil
}

// Fanout publishes to every publisher and returns the first error.
type Fanout []repository.EventPublisher

func (f Fanout) Publish(ctx context.Context, event entity.Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
