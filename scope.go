package jobboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Scope groups the requests issued by one UI context. Closing the scope
// cancels every pending request and no result is delivered once Close
// returns.
type Scope struct {
	ID string

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewScope derives a scope from parent. limit bounds the requests running at
// once; Submit blocks while the limit is reached. A limit <= 0 means no
// limit.
func NewScope(parent context.Context, limit int) *Scope {
	ctx, cancel := context.WithCancel(parent)
	g := &errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &Scope{
		ID:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		group:  g,
	}
}

// Context is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close cancels pending requests and drops their results. It waits for a
// delivery already in progress, so deliver callbacks must not call Close.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
}

// Wait blocks until every submitted request has returned.
func (s *Scope) Wait() {
	_ = s.group.Wait()
}

// Submit runs fn with the scope context and hands its result to deliver,
// unless the scope was closed in the meantime. It reports whether fn was
// started.
func Submit[T any](s *Scope, fn func(ctx context.Context) (T, error), deliver func(T, error)) bool {
	if s.Closed() {
		return false
	}
	s.group.Go(func() error {
		v, err := fn(s.ctx)

		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.closed || s.ctx.Err() != nil {
			return nil
		}
		if deliver != nil {
			deliver(v, err)
		}
		return nil
	})
	return true
}
