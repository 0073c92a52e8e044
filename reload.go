package jobboard

import (
	"context"
	"sync"
)

// TenantReloader reloads tenant scoped listings when the active tenant
// changes. Each change starts exactly one load and cancels the one in
// flight; only the result of the latest change is delivered.
type TenantReloader[T any] struct {
	parent  context.Context
	load    func(ctx context.Context, state TenantState) (T, error)
	deliver func(T, error)

	mu         sync.Mutex
	gen        uint64
	cancel     context.CancelFunc
	lastActive int64
	stopped    bool

	deliverMu   sync.Mutex
	wg          sync.WaitGroup
	unsubscribe func()
}

// NewTenantReloader subscribes to tenants. Stop releases the subscription.
func NewTenantReloader[T any](parent context.Context, tenants *TenantContext, load func(context.Context, TenantState) (T, error), deliver func(T, error)) *TenantReloader[T] {
	r := &TenantReloader[T]{
		parent:  parent,
		load:    load,
		deliver: deliver,
	}
	if id, ok := tenants.ActiveTenantID(); ok {
		r.lastActive = id
	}
	r.unsubscribe = tenants.Subscribe(r)
	return r
}

// TenantChanged implements TenantObserver. Changes that keep the same
// active tenant do not trigger a reload. Losing the selection (logout,
// session teardown) cancels the load in flight and starts none.
func (r *TenantReloader[T]) TenantChanged(state TenantState) {
	r.mu.Lock()
	if r.stopped || state.ActiveID == r.lastActive {
		r.mu.Unlock()
		return
	}
	r.lastActive = state.ActiveID
	if state.ActiveID == 0 {
		if r.cancel != nil {
			r.cancel()
			r.cancel = nil
		}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.start(state)
}

// Reload forces a load for state, superseding any load in flight.
func (r *TenantReloader[T]) Reload(state TenantState) {
	r.start(state)
}

// Generation returns the number of loads started so far.
func (r *TenantReloader[T]) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Stop cancels the load in flight, unsubscribes and waits for loads to
// return. Nothing is delivered afterwards.
func (r *TenantReloader[T]) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.wg.Wait()
}

func (r *TenantReloader[T]) start(state TenantState) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(r.parent)
	r.gen++
	gen := r.gen
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()

		v, err := r.load(ctx, state)

		r.deliverMu.Lock()
		defer r.deliverMu.Unlock()
		if !r.isCurrent(gen) || ctx.Err() != nil {
			return
		}
		if r.deliver != nil {
			r.deliver(v, err)
		}
	}()
}

func (r *TenantReloader[T]) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped && gen == r.gen
}
