package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/rentledger/internal/adapter/otel"
	"github.com/Strob0t/rentledger/internal/port/messagequeue"
	"github.com/Strob0t/rentledger/internal/resilience"
)

// EventPublisher sends domain events on a best-effort basis. A failed or
// short-circuited publish is logged and never reaches the caller.
type EventPublisher struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
	metrics *cfotel.Metrics
}

// NewEventPublisher creates a publisher. breaker may be nil.
func NewEventPublisher(q messagequeue.Queue, breaker *resilience.Breaker) *EventPublisher {
	if q == nil {
		q = messagequeue.Discard{}
	}
	return &EventPublisher{queue: q, breaker: breaker}
}

// SetMetrics enables publish failure counting.
func (p *EventPublisher) SetMetrics(m *cfotel.Metrics) {
	p.metrics = m
}

// Publish marshals payload and sends it on subject.
func (p *EventPublisher) Publish(ctx context.Context, subject string, payload any) {
	if p == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event payload", "subject", subject, "error", err)
		return
	}

	send := func(ctx context.Context) error {
		return p.queue.Publish(ctx, subject, data)
	}
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, send)
	} else {
		err = send(ctx)
	}
	if err != nil {
		slog.WarnContext(ctx, "event publish failed", "subject", subject, "error", err)
		if p.metrics != nil {
			p.metrics.EventPublishFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", subject)))
		}
	}
}

// Subscribe registers handler on the underlying queue.
func (p *EventPublisher) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	return p.queue.Subscribe(ctx, subject, handler)
}
