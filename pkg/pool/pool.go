package pool

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hostbeacon/dnssync/pkg/log"
	"github.com/hostbeacon/dnssync/pkg/metrics"
)

// ErrExhausted is returned when no connection becomes available within
// the acquire timeout. It is transient: callers waiting on a briefly
// saturated pool may succeed on a later attempt.
var ErrExhausted = &exhaustedError{}

type exhaustedError struct{}

func (e *exhaustedError) Error() string   { return "connection pool exhausted" }
func (e *exhaustedError) Temporary() bool { return true }

// Conn is a reusable session to the control-plane endpoint. Each Conn
// carries its own http.Client and Transport so retiring a Conn genuinely
// tears down keep-alive sockets and re-resolves the endpoint.
type Conn struct {
	ID        string
	Client    *http.Client
	CreatedAt time.Time
	LastUsed  time.Time

	gen int
}

// Config bounds the pool
type Config struct {
	MinSize        int
	MaxSize        int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	RecycleAge     time.Duration
}

// Pool maintains a bounded set of reusable connections. Acquire blocks up
// to AcquireTimeout, bounding concurrency against the external API;
// callers that cannot acquire in time fail fast with ErrExhausted rather
// than queueing indefinitely.
type Pool struct {
	cfg    Config
	logger zerolog.Logger

	idle  chan *Conn
	slots chan struct{} // One token per open connection

	mu     sync.Mutex
	gen    int
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a pool warmed to MinSize connections and starts the
// background reaper.
func New(cfg Config) *Pool {
	p := &Pool{
		cfg:    cfg,
		logger: log.WithComponent("pool"),
		idle:   make(chan *Conn, cfg.MaxSize),
		slots:  make(chan struct{}, cfg.MaxSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	for i := 0; i < cfg.MinSize; i++ {
		p.slots <- struct{}{}
		p.idle <- p.newConn()
		metrics.PoolConnectionsIdle.Inc()
	}

	go p.reap()
	return p
}

// Acquire returns a connection, blocking up to the pool acquire timeout.
// The context can cancel the wait earlier.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool is closed")
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	for {
		// Prefer an idle connection without blocking
		select {
		case c := <-p.idle:
			metrics.PoolConnectionsIdle.Dec()
			if p.retire(c) {
				continue
			}
			metrics.PoolConnectionsInUse.Inc()
			return c, nil
		default:
		}

		select {
		case c := <-p.idle:
			metrics.PoolConnectionsIdle.Dec()
			if p.retire(c) {
				continue
			}
			metrics.PoolConnectionsInUse.Inc()
			return c, nil
		case p.slots <- struct{}{}:
			c := p.newConn()
			metrics.PoolConnectionsInUse.Inc()
			return c, nil
		case <-timer.C:
			metrics.PoolAcquireTimeouts.Inc()
			return nil, ErrExhausted
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a connection to the pool. Stale or superseded
// connections are destroyed instead of being reused.
func (p *Pool) Release(c *Conn) {
	metrics.PoolConnectionsInUse.Dec()

	if p.retire(c) {
		return
	}

	c.LastUsed = time.Now()
	select {
	case p.idle <- c:
		metrics.PoolConnectionsIdle.Inc()
	default:
		// Idle buffer full; should not happen with slot accounting,
		// but never block a release path
		p.destroy(c)
	}
}

// Discard destroys a connection without returning it to the pool. Used
// after transport-level failures where the session may be poisoned.
func (p *Pool) Discard(c *Conn) {
	metrics.PoolConnectionsInUse.Dec()
	p.destroy(c)
}

// Recycle retires every pooled connection. In-flight connections are
// destroyed as they are released. Used when the upstream endpoint moved
// behind a load balancer or DNS change.
func (p *Pool) Recycle() {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.logger.Info().Int("generation", gen).Msg("recycling pool connections")
	p.drainStale()
}

// Close shuts the pool down and destroys idle connections
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh

	for {
		select {
		case c := <-p.idle:
			metrics.PoolConnectionsIdle.Dec()
			p.destroy(c)
		default:
			return
		}
	}
}

// Stats reports current occupancy
func (p *Pool) Stats() (open, idle int) {
	return len(p.slots), len(p.idle)
}

func (p *Pool) newConn() *Conn {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	transport := &http.Transport{
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     p.cfg.IdleTimeout,
	}

	return &Conn{
		ID:        uuid.New().String(),
		Client:    &http.Client{Transport: transport},
		CreatedAt: time.Now(),
		LastUsed:  time.Now(),
		gen:       gen,
	}
}

// retire destroys a connection that is past its recycle age or from a
// recycled generation. Returns true if the connection was destroyed.
func (p *Pool) retire(c *Conn) bool {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	if c.gen != gen || time.Since(c.CreatedAt) >= p.cfg.RecycleAge {
		p.destroy(c)
		return true
	}
	return false
}

// destroy closes a connection and frees its slot
func (p *Pool) destroy(c *Conn) {
	c.Client.CloseIdleConnections()
	select {
	case <-p.slots:
	default:
	}
}

// reap closes idle connections past the idle timeout and tops the pool
// back up to MinSize
func (p *Pool) reap() {
	defer close(p.doneCh)

	interval := p.cfg.IdleTimeout / 2
	if interval <= 0 || interval > 30*time.Second {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.reapOnce()
		case <-p.stopCh:
			return
		}
	}
}

func (p *Pool) reapOnce() {
	n := len(p.idle)
	for i := 0; i < n; i++ {
		select {
		case c := <-p.idle:
			metrics.PoolConnectionsIdle.Dec()
			if p.retire(c) {
				continue
			}
			if time.Since(c.LastUsed) >= p.cfg.IdleTimeout && len(p.slots) > p.cfg.MinSize {
				p.destroy(c)
				continue
			}
			p.idle <- c
			metrics.PoolConnectionsIdle.Inc()
		default:
			return
		}
	}

	// Top back up to the minimum
	for len(p.slots) < p.cfg.MinSize {
		select {
		case p.slots <- struct{}{}:
			p.idle <- p.newConn()
			metrics.PoolConnectionsIdle.Inc()
		default:
			return
		}
	}
}

// drainStale walks the idle set once, destroying retired connections
func (p *Pool) drainStale() {
	n := len(p.idle)
	for i := 0; i < n; i++ {
		select {
		case c := <-p.idle:
			metrics.PoolConnectionsIdle.Dec()
			if p.retire(c) {
				continue
			}
			p.idle <- c
			metrics.PoolConnectionsIdle.Inc()
		default:
			return
		}
	}
}
