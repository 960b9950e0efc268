package syncer

import (
	"sync"

	"github.com/matheus3301/chatsync/internal/remote"
)

// slot owns at most one live subscription. Every attach or cancel moves
// the epoch forward; listener callbacks carry the epoch they were opened
// under and are dropped once it is no longer current.
//
// Store.Subscribe must never be called while holding mu, since a store
// may deliver the first snapshot synchronously.
type slot struct {
	mu    sync.Mutex
	epoch uint64
	sub   remote.Subscription
}

func (s *slot) cancelLocked() {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
	s.epoch++
}

// begin cancels the current subscription, runs reset and returns the new epoch.
func (s *slot) begin(reset func()) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	if reset != nil {
		reset()
	}
	return s.epoch
}

// beginIf is begin guarded by cond, evaluated under the slot lock.
func (s *slot) beginIf(cond func() bool, reset func()) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !cond() {
		return 0, false
	}
	s.cancelLocked()
	if reset != nil {
		reset()
	}
	return s.epoch, true
}

// bind stores sub as the live subscription for epoch. If the slot has
// moved on in the meantime, sub is cancelled instead.
func (s *slot) bind(epoch uint64, sub remote.Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		sub.Cancel()
		return false
	}
	s.sub = sub
	return true
}

// cancel drops the live subscription and runs reset. Idempotent.
func (s *slot) cancel(reset func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	if reset != nil {
		reset()
	}
}

// guard runs fn under the slot lock if epoch is still current.
func (s *slot) guard(epoch uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	fn()
	return true
}

func (s *slot) current(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}
