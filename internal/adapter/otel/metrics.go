package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "chainswarm"

// Metrics holds all ChainSwarm metric instruments.
type Metrics struct {
	TasksCreated   metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksFailed    metric.Int64Counter
	TasksRejected  metric.Int64Counter
	PromptDuration metric.Float64Histogram
	RiskScore      metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksCreated, err = meter.Int64Counter("chainswarm.tasks.created",
		metric.WithDescription("Number of tasks created"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("chainswarm.tasks.completed",
		metric.WithDescription("Number of tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("chainswarm.tasks.failed",
		metric.WithDescription("Number of tasks failed"))
	if err != nil {
		return nil, err
	}

	m.TasksRejected, err = meter.Int64Counter("chainswarm.tasks.rejected",
		metric.WithDescription("Number of tasks rejected by the risk gate"))
	if err != nil {
		return nil, err
	}

	m.PromptDuration, err = meter.Float64Histogram("chainswarm.prompt.duration_seconds",
		metric.WithDescription("Agent prompt processing duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.RiskScore, err = meter.Float64Histogram("chainswarm.risk.aggregate_score",
		metric.WithDescription("Aggregate risk score per agent response"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
