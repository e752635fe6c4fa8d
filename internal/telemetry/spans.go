package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tasksync"

// StartGatewaySpan starts a span for a persistence call.
func StartGatewaySpan(ctx context.Context, op, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.op", op),
			attribute.String("task.id", taskID),
		),
	)
}

// StartTransactionSpan starts a span covering an optimistic transaction until it settles.
func StartTransactionSpan(ctx context.Context, kind, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("transaction.kind", kind),
			attribute.String("task.id", taskID),
		),
	)
}
