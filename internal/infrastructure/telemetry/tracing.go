package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of pricing spans
const TracerName = "marketsync"

// Attribute keys of pricing spans and span events
const (
	AttrBatchID      = attribute.Key("pricing.batch_id")
	AttrOfferID      = attribute.Key("pricing.offer_id")
	AttrItemCount    = attribute.Key("pricing.item_count")
	AttrPriced       = attribute.Key("pricing.priced")
	AttrSkipped      = attribute.Key("pricing.skipped")
	AttrEnriched     = attribute.Key("pricing.enriched")
	AttrUnprofitable = attribute.Key("pricing.unprofitable")
	AttrFailed       = attribute.Key("pricing.failed")
)

// EventItemSkipped marks an item the optimizer left unpriced
const EventItemSkipped = "item_skipped"

// StartSpan starts an internal span on the pricing tracer. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// FailSpan records err on span and sets the error status. A nil err is a no-op.
func FailSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace id active in ctx, or "" without a sampled span
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
