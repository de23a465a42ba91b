package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chainswarm"

// StartTaskSpan starts a span for one task execution.
func StartTaskSpan(ctx context.Context, taskID, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("agent.id", agentID),
		),
	)
}

// StartPromptSpan starts a span for a decision round trip.
func StartPromptSpan(ctx context.Context, agentID, agentType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "prompt",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("agent.type", agentType),
		),
	)
}

// StartRiskSpan starts a span for transaction risk evaluation.
func StartRiskSpan(ctx context.Context, txID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "risk",
		trace.WithAttributes(
			attribute.String("tx.id", txID),
			attribute.String("tx.kind", kind),
		),
	)
}
