package breaker

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hostbeacon/dnssync/pkg/log"
	"github.com/hostbeacon/dnssync/pkg/metrics"
)

// State represents the breaker state
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Clock abstracts time for deterministic tests
type Clock func() time.Time

// Breaker is a per-dependency circuit breaker. State is process-local and
// never persisted; a restart starts closed.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       Clock
	logger    zerolog.Logger

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

// New creates a closed breaker for the named dependency
func New(name string, threshold int, cooldown time.Duration) *Breaker {
	return NewWithClock(name, threshold, cooldown, time.Now)
}

// NewWithClock creates a breaker with an injected clock
func NewWithClock(name string, threshold int, cooldown time.Duration, now Clock) *Breaker {
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		logger:    log.WithComponent("breaker"),
		state:     StateClosed,
	}
}

// Allow reports whether a call may proceed. While open it returns false
// until the cooldown elapses, then transitions to half-open and admits
// exactly one trial call; concurrent callers during the trial are
// rejected as if open.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(StateHalfOpen, "cooldown elapsed")
		b.probeInFlight = true
		return true
	case StateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	}
	return false
}

// OnSuccess records a successful call
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probeInFlight = false
		b.failures = 0
		b.transition(StateClosed, "trial call succeeded")
	}
}

// OnFailure records a failed call
func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.openedAt = b.now()
			b.transition(StateOpen, "failure threshold reached")
		}
	case StateHalfOpen:
		b.probeInFlight = false
		b.openedAt = b.now()
		b.transition(StateOpen, "trial call failed")
	}
}

// State returns the current state, accounting for an elapsed cooldown.
// An open breaker whose cooldown has passed reports half-open even before
// the next Allow() performs the transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// transition switches state and logs the change. Caller holds b.mu.
func (b *Breaker) transition(next State, reason string) {
	prev := b.state
	b.state = next

	b.logger.Warn().
		Str("dependency", b.name).
		Str("from", string(prev)).
		Str("to", string(next)).
		Str("reason", reason).
		Int("failures", b.failures).
		Msg("circuit breaker transition")

	metrics.SetBreakerState(b.name, string(next))
}
