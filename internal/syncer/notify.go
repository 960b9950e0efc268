package syncer

import (
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
	"go.uber.org/zap"
)

// Event carries one message that can be read exactly once.
type Event struct {
	mu       sync.Mutex
	msg      string
	consumed bool
}

// NewEvent wraps msg.
func NewEvent(msg string) *Event {
	return &Event{msg: msg}
}

// Consume returns the message the first time it is called and ("", false)
// afterwards.
func (e *Event) Consume() (string, bool) {
	if e == nil {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consumed {
		return "", false
	}
	e.consumed = true
	return e.msg, true
}

// Peek returns the message without consuming it.
func (e *Event) Peek() string {
	if e == nil {
		return ""
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg
}

// Notifier is a single-slot channel for errors and confirmations. A new
// publish replaces any event not yet consumed.
type Notifier struct {
	mu      sync.Mutex
	pending *Event
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewNotifier creates a notifier. b and logger may be nil.
func NewNotifier(b *bus.Bus, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{bus: b, logger: logger}
}

// Bus kinds emitted by a Notifier. Both carry the message as payload.
const (
	KindNotifyPublished = "notify.published"
	KindNotifyError     = "notify.error"
)

// Publish stores msg as the pending event.
func (n *Notifier) Publish(msg string) {
	n.publish(msg, KindNotifyPublished)
}

func (n *Notifier) publish(msg, kind string) {
	evt := NewEvent(msg)
	n.mu.Lock()
	n.pending = evt
	n.mu.Unlock()
	n.bus.Emit(kind, msg)
}

// Report logs err and publishes its message.
func (n *Notifier) Report(err error) {
	if err == nil {
		return
	}
	n.logger.Warn("operation failed", zap.Stringer("kind", KindOf(err)), zap.Error(err))
	n.publish(err.Error(), KindNotifyError)
}

// Latest returns the pending event, which may already be consumed.
func (n *Notifier) Latest() *Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

// Consume reads the pending event once.
func (n *Notifier) Consume() (string, bool) {
	return n.Latest().Consume()
}
