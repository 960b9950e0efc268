package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
)

func TestEventConsumedOnce(t *testing.T) {
	evt := NewEvent("Logged out")

	msg, ok := evt.Consume()
	if !ok || msg != "Logged out" {
		t.Fatalf("first Consume() = (%q, %v), want (Logged out, true)", msg, ok)
	}
	msg, ok = evt.Consume()
	if ok || msg != "" {
		t.Errorf("second Consume() = (%q, %v), want empty", msg, ok)
	}
	if evt.Peek() != "Logged out" {
		t.Errorf("Peek() = %q after consume", evt.Peek())
	}
}

func TestNotifierLastPublishWins(t *testing.T) {
	n := NewNotifier(nil, nil)

	if _, ok := n.Consume(); ok {
		t.Error("Consume() on empty notifier should report nothing")
	}

	n.Publish("first")
	n.Publish("second")
	msg, ok := n.Consume()
	if !ok || msg != "second" {
		t.Errorf("Consume() = (%q, %v), want second", msg, ok)
	}
	if _, ok := n.Consume(); ok {
		t.Error("Consume() without a new publish should report nothing")
	}

	n.Publish("third")
	if msg, _ := n.Consume(); msg != "third" {
		t.Errorf("Consume() = %q, want third", msg)
	}
}

func TestNotifierReport(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("notify.", 1)
	defer unsub()

	n := NewNotifier(b, nil)
	n.Report(remoteError("Login failed", errors.New("wrong password")))

	msg, _ := n.Consume()
	if msg != "Login failed: wrong password" {
		t.Errorf("message = %q", msg)
	}
	select {
	case evt := <-ch:
		if evt.Kind != KindNotifyError {
			t.Errorf("kind = %q, want %q", evt.Kind, KindNotifyError)
		}
	case <-time.After(time.Second):
		t.Fatal("no notify event on bus")
	}

	n.Report(nil)
	if _, ok := n.Consume(); ok {
		t.Error("Report(nil) should not publish")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		want error
		kind Kind
	}{
		{validationError("bad"), ErrValidation, KindValidation},
		{conflictError("dup"), ErrConflict, KindConflict},
		{notFoundError("none"), ErrNotFound, KindNotFound},
		{remoteError("boom", errors.New("io")), ErrRemote, KindRemote},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
			if KindOf(tt.err) != tt.kind {
				t.Errorf("KindOf = %v, want %v", KindOf(tt.err), tt.kind)
			}
		})
	}
	if errors.Is(conflictError("dup"), ErrValidation) {
		t.Error("conflict must not match ErrValidation")
	}
	if KindOf(errors.New("plain")) != KindRemote {
		t.Error("foreign errors should classify as remote")
	}
	cause := errors.New("io")
	if !errors.Is(remoteError("x", cause), cause) {
		t.Error("remote error should unwrap to its cause")
	}
}

func TestValueWaitAndChanged(t *testing.T) {
	v := NewValue("n", nil, 0)
	changed := v.Changed()

	go func() {
		time.Sleep(10 * time.Millisecond)
		v.set(1)
		v.set(2)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := v.Wait(ctx, func(n int) bool { return n == 2 })
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 || v.Version() != 2 {
		t.Errorf("got %d version %d, want 2/2", got, v.Version())
	}
	select {
	case <-changed:
	default:
		t.Error("Changed() channel should be closed after a write")
	}
}

func TestValueSettleIgnoresInitial(t *testing.T) {
	v := NewValue("loading", nil, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := v.Settle(ctx, func(b bool) bool { return !b })
	cancel()
	if err == nil {
		t.Fatal("Settle() should not accept the initial value")
	}

	go func() {
		v.set(true)
		v.set(false)
	}()
	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := v.Settle(ctx, func(b bool) bool { return !b }); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
}

func TestSessionTransitions(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	s := NewSession(b)
	if err := s.transition(PhaseSignedIn, "u1"); err != nil {
		t.Fatal(err)
	}
	if !s.SignedIn() || s.UserID() != "u1" {
		t.Errorf("phase %s uid %q", s.Phase(), s.UserID())
	}
	if err := s.transition(PhaseSigningIn, ""); err == nil {
		t.Error("SIGNED_IN -> SIGNING_IN should be rejected")
	}
	if err := s.transition(PhaseSignedOut, ""); err != nil {
		t.Fatal(err)
	}
	if s.UserID() != "" {
		t.Error("uid should clear on sign-out")
	}

	select {
	case evt := <-ch:
		change := evt.Payload.(PhaseChange)
		if change.From != PhaseSignedOut || change.To != PhaseSignedIn {
			t.Errorf("first change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("no phase event")
	}
}
