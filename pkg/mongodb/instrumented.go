package mongodb

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
)

// Observer records metrics, a trace span and a debug log line for each
// repository operation. A nil Observer is valid and only runs the operation.
type Observer struct {
	database string
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewObserver creates an Observer; m and logger may be nil
func NewObserver(database string, m *metrics.Metrics, logger *logging.Logger) *Observer {
	return &Observer{
		database: database,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("mongodb"),
	}
}

// Observe runs op and records how it went. op returns the number of affected documents.
func (o *Observer) Observe(ctx context.Context, collection, operation string, op func(ctx context.Context) (int64, error)) error {
	if o == nil {
		_, err := op(ctx)
		return err
	}

	ctx, span := o.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(o.database),
			semconv.DBMongoDBCollectionKey.String(collection),
			semconv.DBOperationKey.String(operation),
		),
	)
	defer span.End()

	start := time.Now()
	affected, err := op(ctx)
	duration := time.Since(start)

	span.SetAttributes(attribute.Int64("db.rows_affected", affected))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics != nil {
		o.metrics.RecordMongoDBOperation(collection, operation, err == nil, duration)
	}
	if o.logger != nil {
		o.logger.DatabaseQuery(ctx, collection, operation, duration, err == nil, affected)
	}

	return err
}
