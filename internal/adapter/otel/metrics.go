package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "rentledger"

// Metrics holds all rentledger metric instruments.
type Metrics struct {
	PaymentsRecorded   metric.Int64Counter
	PaymentsDeleted    metric.Int64Counter
	AmountCollected    metric.Float64Counter
	LedgerCacheHits    metric.Int64Counter
	LedgerCacheMisses  metric.Int64Counter
	LedgerComputeTime  metric.Float64Histogram
	EventPublishFailed metric.Int64Counter
	BreakerTransitions metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PaymentsRecorded, err = meter.Int64Counter("rentledger.payments.recorded",
		metric.WithDescription("Number of payments recorded"))
	if err != nil {
		return nil, err
	}

	m.PaymentsDeleted, err = meter.Int64Counter("rentledger.payments.deleted",
		metric.WithDescription("Number of payments deleted"))
	if err != nil {
		return nil, err
	}

	m.AmountCollected, err = meter.Float64Counter("rentledger.payments.amount",
		metric.WithDescription("Sum of recorded payment amounts"))
	if err != nil {
		return nil, err
	}

	m.LedgerCacheHits, err = meter.Int64Counter("rentledger.ledger.cache.hits",
		metric.WithDescription("Ledger reads served from cache"))
	if err != nil {
		return nil, err
	}

	m.LedgerCacheMisses, err = meter.Int64Counter("rentledger.ledger.cache.misses",
		metric.WithDescription("Ledger reads that recomputed"))
	if err != nil {
		return nil, err
	}

	m.LedgerComputeTime, err = meter.Float64Histogram("rentledger.ledger.compute_seconds",
		metric.WithDescription("Time to load and compute a ledger"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.EventPublishFailed, err = meter.Int64Counter("rentledger.events.publish_failed",
		metric.WithDescription("Domain events that could not be published"))
	if err != nil {
		return nil, err
	}

	m.BreakerTransitions, err = meter.Int64Counter("rentledger.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
