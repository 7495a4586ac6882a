package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/tx/pkg/exchange"
)

const spanName = "tx.exchange"

func (e *Engine) startSpan(ctx context.Context, call *exchange.Call) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("tx.handler", call.Handler),
			attribute.String("tx.swap", call.Swap),
			attribute.String("tx.exchange_id", call.ID),
			attribute.String("tx.event", call.Event),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
