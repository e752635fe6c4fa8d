// Package telemetry holds the OpenTelemetry instruments of the sync engine.
// Instruments come from the global providers and are no-ops unless the host
// installs an SDK.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tasksync"

// Metrics holds all tasksync metric instruments.
type Metrics struct {
	TransactionsApplied    metric.Int64Counter
	TransactionsRolledBack metric.Int64Counter
	TransactionsSuperseded metric.Int64Counter
	GatewayDuration        metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TransactionsApplied, err = meter.Int64Counter("tasksync.transactions.applied",
		metric.WithDescription("Number of optimistic transactions applied"))
	if err != nil {
		return nil, err
	}

	m.TransactionsRolledBack, err = meter.Int64Counter("tasksync.transactions.rolled_back",
		metric.WithDescription("Number of transactions rolled back after a gateway failure"))
	if err != nil {
		return nil, err
	}

	m.TransactionsSuperseded, err = meter.Int64Counter("tasksync.transactions.superseded",
		metric.WithDescription("Number of task rollbacks skipped because a newer mutation owns the task"))
	if err != nil {
		return nil, err
	}

	m.GatewayDuration, err = meter.Float64Histogram("tasksync.gateway.duration_seconds",
		metric.WithDescription("Gateway call duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
