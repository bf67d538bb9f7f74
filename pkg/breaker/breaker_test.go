package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock for deterministic cooldown tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock) *Breaker {
	return NewWithClock("test-backend", 5, 60*time.Second, clock.Now)
}

// TestBreakerStartsClosed tests the initial state
func TestBreakerStartsClosed(t *testing.T) {
	b := newTestBreaker(newFakeClock())

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

// TestBreakerOpensAtThreshold tests that 5 consecutive failures open the
// breaker and further calls are rejected before the cooldown elapses
func TestBreakerOpensAtThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		b.OnFailure()
		assert.Equal(t, StateClosed, b.State(), "breaker opened before threshold")
	}
	b.OnFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow(), "breaker allowed a call before cooldown elapsed")
}

// TestBreakerSuccessResetsCounter tests that a success clears accumulated
// failures while closed
func TestBreakerSuccessResetsCounter(t *testing.T) {
	b := newTestBreaker(newFakeClock())

	for i := 0; i < 4; i++ {
		b.OnFailure()
	}
	b.OnSuccess()
	assert.Equal(t, 0, b.Failures())

	// Four more failures should still not open it
	for i := 0; i < 4; i++ {
		b.OnFailure()
	}
	assert.Equal(t, StateClosed, b.State())
}

// TestBreakerHalfOpenSingleProbe tests that exactly one trial call is
// admitted after the cooldown, regardless of concurrent callers
func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		b.OnFailure()
	}
	clock.Advance(60 * time.Second)

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, allowed, "half-open must admit exactly one trial call")
}

// TestBreakerHalfOpenSuccessCloses tests recovery via a successful trial
func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		b.OnFailure()
	}
	clock.Advance(60 * time.Second)

	assert.True(t, b.Allow())
	b.OnSuccess()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.True(t, b.Allow())
}

// TestBreakerHalfOpenFailureReopens tests that a failed trial restarts
// the cooldown
func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		b.OnFailure()
	}
	clock.Advance(60 * time.Second)

	assert.True(t, b.Allow())
	b.OnFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	// Cooldown restarts from the trial failure
	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())
	clock.Advance(time.Second)
	assert.True(t, b.Allow())
}

// TestBreakerConcurrentFailures tests transition atomicity under
// concurrent callers
func TestBreakerConcurrentFailures(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.OnFailure()
		}()
	}
	wg.Wait()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}
