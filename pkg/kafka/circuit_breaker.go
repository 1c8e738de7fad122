package kafka

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/artur-silva-empresa/Texdex/pkg/cloudevents"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
	"github.com/artur-silva-empresa/Texdex/pkg/resilience"
)

// EventPublisher publishes one event to a topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error
}

// CircuitBreakerProducer guards a publisher with a breaker and records metrics
type CircuitBreakerProducer struct {
	producer       EventPublisher
	circuitBreaker *resilience.CircuitBreaker
	metrics        *metrics.Metrics
	logger         *logging.Logger
}

// NewCircuitBreakerProducer wraps producer with a breaker named
// "kafka-producer". State changes are exported as metrics when m is not nil.
func NewCircuitBreakerProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	const name = "kafka-producer"

	config := resilience.DefaultCircuitBreakerConfig(name)
	config.MaxRequests = 5
	config.OnStateChange = func(name string, _, to gobreaker.State) {
		if m == nil {
			return
		}
		m.SetCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	}

	return &CircuitBreakerProducer{
		producer:       producer,
		circuitBreaker: resilience.NewCircuitBreaker(config, logger.Logger),
		metrics:        m,
		logger:         logger,
	}
}

// PublishEvent publishes through the breaker. Every attempt is recorded as a
// metric and a log line, rejected ones included.
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.Event) error {
	start := time.Now()
	_, err := p.circuitBreaker.Execute(ctx, func() (any, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
	}
	p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)
	return err
}

// State returns the breaker state
func (p *CircuitBreakerProducer) State() gobreaker.State {
	return p.circuitBreaker.State()
}
