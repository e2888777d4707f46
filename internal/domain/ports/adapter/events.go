package adapter

import (
	"context"

	"content-studio/internal/domain/model"
)

// EventPublisher broadcasts events to current subscribers. Delivery is best
// effort: Publish never blocks on slow consumers and reports no error.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event)
}
