package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Emit("session.phase_changed", "test")

	select {
	case evt := <-ch:
		if evt.Kind != "session.phase_changed" {
			t.Errorf("got kind %q, want session.phase_changed", evt.Kind)
		}
		if evt.Timestamp.IsZero() {
			t.Error("Emit should stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("doc.chats.", 10)
	defer unsub()

	b.Emit("doc.chats/c1/messages.changed", nil)
	b.Emit("doc.users.changed", nil)
	b.Emit("doc.chats.changed", nil)

	select {
	case evt := <-ch:
		if evt.Kind != "doc.chats.changed" {
			t.Errorf("got kind %q, want doc.chats.changed", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub()

	b.Emit("session.phase_changed", nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Emit("test.one", nil)
	b.Emit("test.two", nil)

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	select {
	case evt := <-ch:
		t.Errorf("second event should have been dropped, got %v", evt)
	default:
	}
}

func TestEmitNilBus(t *testing.T) {
	var b *Bus
	b.Emit("anything", nil)
}

func TestEventNamespace(t *testing.T) {
	tests := []struct {
		kind   string
		ns     string
		prefix string
		under  bool
	}{
		{"state.chats", "state", "state.", true},
		{"doc.users.changed", "doc", "doc.users.", true},
		{"notify.error", "notify", "state.", false},
		{"session", "session", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			evt := Event{Kind: tt.kind}
			if got := evt.Namespace(); got != tt.ns {
				t.Errorf("Namespace() = %q, want %q", got, tt.ns)
			}
			if got := evt.Under(tt.prefix); got != tt.under {
				t.Errorf("Under(%q) = %v, want %v", tt.prefix, got, tt.under)
			}
		})
	}
}

func TestFullSubscriberCountsDrops(t *testing.T) {
	b := New()
	_, unsub := b.Subscribe("state.", 1)
	defer unsub()

	for i := 0; i < 3; i++ {
		b.Emit("state.chats", nil)
	}
	b.Emit("notify.error", nil)
	if got := b.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
}
