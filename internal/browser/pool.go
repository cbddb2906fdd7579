package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stockpulse-hq/bazaar-pulse/internal/logger"
)

// ErrPoolExhausted is returned by Acquire when no session is idle. Callers
// decide whether to skip work or retry later; the pool never blocks.
var ErrPoolExhausted = errors.New("browser: session pool exhausted")

// Pool holds a fixed number of reusable browser sessions. A session acquired
// from the pool must be released on every exit path, typically via defer.
type Pool struct {
	mu      sync.Mutex
	idle    []Session
	size    int
	factory Factory
	ctx     context.Context
	log     logger.Logger
	closed  bool
}

// NewPool creates the pool and eagerly starts size sessions. A failure while
// starting the initial sessions aborts setup.
func NewPool(ctx context.Context, size int, factory Factory, log logger.Logger) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("browser: pool size must be positive, got %d", size)
	}
	if factory == nil {
		return nil, errors.New("browser: pool requires a session factory")
	}

	p := &Pool{
		size:    size,
		factory: factory,
		ctx:     ctx,
		log:     logger.Ensure(log),
	}

	for i := 0; i < size; i++ {
		s, err := factory(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("browser: start session %d/%d: %w", i+1, size, err)
		}
		p.idle = append(p.idle, s)
	}

	p.log.InfoObj("browser session pool ready", "pool_ready", map[string]any{
		"size": size,
	})
	return p, nil
}

// Acquire removes and returns an idle session, or ErrPoolExhausted.
func (p *Pool) Acquire() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.New("browser: pool is closed")
	}
	if len(p.idle) == 0 {
		return nil, ErrPoolExhausted
	}

	s := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	return s, nil
}

// Release returns a session to the pool. Sessions that are no longer
// connected are closed and replaced with a fresh one to keep the pool at its
// configured size.
func (p *Pool) Release(s Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.Close()
		return
	}

	if s.Alive() {
		p.idle = append(p.idle, s)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	s.Close()
	p.log.WarnObj("dropping disconnected browser session", "pool_session_dropped", map[string]any{
		"session_id": s.ID(),
	})

	replacement, err := p.factory(p.ctx)
	if err != nil {
		p.log.ErrorObj("failed to replace browser session", "pool_replace_error", map[string]any{
			"error": err.Error(),
		})
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		replacement.Close()
		return
	}
	p.idle = append(p.idle, replacement)
	p.mu.Unlock()
}

// Close shuts down all idle sessions. Sessions still checked out are closed
// by Release once returned.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
}
