// Package resilience provides reliability patterns for calls to external
// services such as the message broker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker opens after maxFailures consecutive failures and rejects calls
// until timeout has elapsed. It then lets a single trial call through: success
// closes it, failure reopens it.
type Breaker struct {
	name        string
	maxFailures int
	timeout     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	onChange func(name string, from, to State)
}

// NewBreaker creates a circuit breaker.
func NewBreaker(name string, maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		name:        name,
		maxFailures: max(maxFailures, 1),
		timeout:     timeout,
		now:         time.Now,
	}
}

// OnStateChange registers fn to run after every transition, outside the lock.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// State returns the current position, reporting an expired open breaker as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn unless the circuit is open. Cancellation of ctx is not
// counted as a failure of the protected service.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.acquire() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		b.release()
		return err
	}
	b.record(err == nil)
	return err
}

func (b *Breaker) acquire() bool {
	b.mu.Lock()
	var from, to State
	allowed := false
	switch b.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.timeout {
			from, to = b.transition(StateHalfOpen)
			b.probing = true
			allowed = true
		}
	case StateHalfOpen:
		if !b.probing {
			b.probing = true
			allowed = true
		}
	}
	fn := b.onChange
	b.mu.Unlock()
	b.notify(fn, from, to)
	return allowed
}

func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	var from, to State
	b.probing = false
	if success {
		b.failures = 0
		from, to = b.transition(StateClosed)
	} else {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.maxFailures {
			b.openedAt = b.now()
			from, to = b.transition(StateOpen)
		}
	}
	fn := b.onChange
	b.mu.Unlock()
	b.notify(fn, from, to)
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) (State, State) {
	from := b.state
	b.state = to
	return from, to
}

func (b *Breaker) notify(fn func(string, State, State), from, to State) {
	if fn != nil && from != to {
		fn(b.name, from, to)
	}
}
