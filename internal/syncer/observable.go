package syncer

import (
	"context"
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
)

// Value is an observable state container. Only this package writes to it;
// readers poll Get or block on Changed. Slices handed out by Get are
// replaced wholesale on every write and must not be modified.
type Value[T any] struct {
	name string
	bus  *bus.Bus

	mu      sync.RWMutex
	v       T
	version uint64
	changed chan struct{}
}

// NewValue creates a container holding initial.
func NewValue[T any](name string, b *bus.Bus, initial T) *Value[T] {
	return &Value[T]{name: name, bus: b, v: initial, changed: make(chan struct{})}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Version counts writes.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Changed returns a channel closed on the next write.
func (v *Value[T]) Changed() <-chan struct{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.changed
}

// Wait blocks until pred holds for the current value or ctx is done.
func (v *Value[T]) Wait(ctx context.Context, pred func(T) bool) (T, error) {
	for {
		v.mu.RLock()
		cur, ch := v.v, v.changed
		v.mu.RUnlock()
		if pred(cur) {
			return cur, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return cur, ctx.Err()
		}
	}
}

// Settle is Wait, but ignores the initial value: it returns once v has
// been written at least once and pred holds.
func (v *Value[T]) Settle(ctx context.Context, pred func(T) bool) (T, error) {
	for {
		v.mu.RLock()
		cur, version, ch := v.v, v.version, v.changed
		v.mu.RUnlock()
		if version > 0 && pred(cur) {
			return cur, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return cur, ctx.Err()
		}
	}
}

func (v *Value[T]) set(x T) {
	v.mu.Lock()
	v.v = x
	v.version++
	close(v.changed)
	v.changed = make(chan struct{})
	v.mu.Unlock()
	v.bus.Emit("state."+v.name, nil)
}
