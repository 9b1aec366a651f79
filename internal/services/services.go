package services

import (
	"context"

	"go.uber.org/zap"
)

// Routing keys of the domain events published to the message broker.
const (
	EventOrderCreated   = "order.created"
	EventInquiryCreated = "inquiry.created"
)

// EventPublisher publishes domain events. Services treat a nil publisher as disabled.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

func publish(ctx context.Context, publisher EventPublisher, routingKey string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, routingKey, payload); err != nil {
		zap.L().Warn("failed to publish event", zap.String("event", routingKey), zap.Error(err))
	}
}
