package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/rentledger/internal/adapter/memory"
	"github.com/Strob0t/rentledger/internal/domain/payment"
	"github.com/Strob0t/rentledger/internal/port/database"
	"github.com/Strob0t/rentledger/internal/port/messagequeue"
)

var _ database.Store = (*mockStore)(nil)

// mockStore wraps the in-memory store with call counters and error hooks.
type mockStore struct {
	*memory.Store

	paymentLoads    atomic.Int32
	listPaymentsErr error

	// When gate is set, ListPaymentsByTenant signals entered, blocks until gate
	// is closed and then fails with the context's error, as a database would.
	gate    chan struct{}
	entered chan struct{}
}

func newMockStore() *mockStore {
	return &mockStore{Store: memory.NewStore()}
}

func (m *mockStore) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]payment.Payment, error) {
	m.paymentLoads.Add(1)
	if m.gate != nil {
		m.entered <- struct{}{}
		<-m.gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return m.Store.ListPaymentsByTenant(ctx, tenantID)
}

func (m *mockStore) ListPayments(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error) {
	if m.listPaymentsErr != nil {
		return nil, m.listPaymentsErr
	}
	return m.Store.ListPayments(ctx, filter)
}

// mapCache is a synchronous cache.Cache.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type published struct {
	subject string
	data    []byte
}

// fakeQueue records publishes and can be made to fail.
type fakeQueue struct {
	messagequeue.Discard

	mu       sync.Mutex
	messages []published
	fail     bool
}

var errQueueDown = errors.New("queue down")

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail {
		return errQueueDown
	}
	q.messages = append(q.messages, published{subject: subject, data: data})
	return nil
}

func (q *fakeQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.messages))
	for i, m := range q.messages {
		out[i] = m.subject
	}
	return out
}

func (q *fakeQueue) last(subject string) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := len(q.messages) - 1; i >= 0; i-- {
		if q.messages[i].subject == subject {
			return q.messages[i].data
		}
	}
	return nil
}

// recordingHub captures broadcast events.
type recordingHub struct {
	mu     sync.Mutex
	events []any
}

func (h *recordingHub) BroadcastEvent(_ context.Context, _ string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, payload)
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
