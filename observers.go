package jobboard

import (
	"sort"
	"sync"
)

// observerSet keeps registration order so notifications are deterministic.
type observerSet[T any] struct {
	mu    sync.Mutex
	next  int
	items map[int]T
}

func (o *observerSet[T]) add(v T) func() {
	o.mu.Lock()
	if o.items == nil {
		o.items = map[int]T{}
	}
	id := o.next
	o.next++
	o.items[id] = v
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.items, id)
			o.mu.Unlock()
		})
	}
}

func (o *observerSet[T]) snapshot() []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]int, 0, len(o.items))
	for id := range o.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, o.items[id])
	}
	return out
}
