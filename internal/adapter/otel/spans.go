package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rentledger"

// StartLedgerSpan starts a span for a ledger read or recomputation.
func StartLedgerSpan(ctx context.Context, workspaceID, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ledger.compute",
		trace.WithAttributes(
			attribute.String("workspace.id", workspaceID),
			attribute.String("tenant.id", tenantID),
		),
	)
}

// StartPaymentSpan starts a span for a payment mutation.
func StartPaymentSpan(ctx context.Context, op, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "payment."+op,
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
}

// StartAnalyticsSpan starts a span for a portfolio aggregation.
func StartAnalyticsSpan(ctx context.Context, report string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "analytics."+report)
}
