package events

import (
	"context"
	"fmt"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/cloudevents"
	"github.com/artur-silva-empresa/Texdex/pkg/kafka"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

// Publisher implements domain.EventPublisher by wrapping domain events in
// CloudEvents envelopes and sending them to Kafka
type Publisher struct {
	producer kafka.EventPublisher
	factory  *cloudevents.EventFactory
	logger   *logging.Logger
}

// NewPublisher creates a new Publisher. producer is usually a
// kafka.CircuitBreakerProducer.
func NewPublisher(producer kafka.EventPublisher, factory *cloudevents.EventFactory, logger *logging.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		factory:  factory,
		logger:   logger.WithComponent("event-publisher"),
	}
}

// Publish sends one event to its topic
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	topic := TopicFor(event)
	envelope := p.factory.CreateUserEvent(ctx, event.EventType(), event.Subject(), event.Actor(), correlationID(ctx), event)
	envelope.Time = event.OccurredAt().UTC()

	if err := p.producer.PublishEvent(ctx, topic, envelope); err != nil {
		p.logger.WithContext(ctx).WithError(err).Warn("Failed to publish event",
			"eventType", event.EventType(),
			"subject", event.Subject(),
		)
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}
	return nil
}

// TopicFor routes configuration changes to the config topic and everything
// else to the orders topic
func TopicFor(event domain.DomainEvent) string {
	if event.EventType() == cloudevents.StopReasonsUpdated {
		return kafka.Topics.ConfigEvents
	}
	return kafka.Topics.OrdersEvents
}

func correlationID(ctx context.Context) string {
	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		return v
	}
	return ""
}
