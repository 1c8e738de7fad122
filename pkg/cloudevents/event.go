package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Event types published by the production tracker
const (
	ImportCompleted    = "texflow.import.completed"
	OrderAnnotated     = "texflow.order.annotated"
	OrderDeleted       = "texflow.order.deleted"
	DocumentAnnotated  = "texflow.document.annotated"
	DocumentDeleted    = "texflow.document.deleted"
	StopReasonsUpdated = "texflow.stop-reasons.updated"
)

// SourceTracker is the CloudEvents source of this service
const SourceTracker = "/texflow/tracker"

// Event is a CloudEvents v1.0 envelope
type Event struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	// Extensions
	CorrelationID string `json:"texflowcorrelationid,omitempty"`
	User          string `json:"texflowuser,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
	TraceState    string `json:"tracestate,omitempty"`
}

// EventFactory creates events for a fixed source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent builds an event and copies W3C trace context from ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data any) *Event {
	event := &Event{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateUserEvent builds an event attributed to the user who caused it
func (f *EventFactory) CreateUserEvent(ctx context.Context, eventType, subject, user, correlationID string, data any) *Event {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.User = user
	event.CorrelationID = correlationID
	return event
}
