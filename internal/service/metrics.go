package service

import (
	"github.com/rcrowley/go-metrics"
	"github.com/shopspring/decimal"
)

const (
	metricChargeCount    = "wallet.charge.count"
	metricChargeAmount   = "wallet.charge.amount"
	metricConflictPrefix = "wallet.conflict."
)

// GoMetricsSink implements ports.MetricsSink on a go-metrics registry.
type GoMetricsSink struct {
	registry metrics.Registry
	charges  metrics.Counter
	amounts  metrics.Histogram
}

// NewGoMetricsSink registers the wallet metrics in registry. A nil registry
// gets a fresh one.
func NewGoMetricsSink(registry metrics.Registry) *GoMetricsSink {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &GoMetricsSink{
		registry: registry,
		charges:  metrics.GetOrRegisterCounter(metricChargeCount, registry),
		amounts: metrics.GetOrRegisterHistogram(metricChargeAmount, registry,
			metrics.NewExpDecaySample(1028, 0.015)),
	}
}

// Registry exposes the underlying registry for the /metrics endpoint.
func (m *GoMetricsSink) Registry() metrics.Registry {
	return m.registry
}

// RecordCharge counts a committed charge. Amounts are recorded in whole
// units; fractional parts are truncated.
func (m *GoMetricsSink) RecordCharge(amount decimal.Decimal) {
	m.charges.Inc(1)
	m.amounts.Update(amount.IntPart())
}

// RecordConflict counts one lost optimistic-concurrency race for operation.
func (m *GoMetricsSink) RecordConflict(operation string) {
	metrics.GetOrRegisterCounter(metricConflictPrefix+operation, m.registry).Inc(1)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordCharge(decimal.Decimal) {}
func (NoopMetrics) RecordConflict(string)        {}
