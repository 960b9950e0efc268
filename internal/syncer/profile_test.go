package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

func newTestProfile(st remote.Store) (*ProfileSync, *Value[*UserProfile], *Notifier) {
	profile := NewValue[*UserProfile]("profile", nil, nil)
	n := NewNotifier(nil, nil)
	return newProfileSync(st, n, zap.NewNop(), profile), profile, n
}

func profileDoc(uid, name, number string) remote.Document {
	return doc(uid, map[string]any{"userId": uid, "name": name, "number": number})
}

func TestProfileResolvesOnce(t *testing.T) {
	fs := &fakeStore{}
	p, profile, _ := newTestProfile(fs)

	resolved := 0
	if err := p.Attach(context.Background(), "me", func(UserProfile) { resolved++ }); err != nil {
		t.Fatal(err)
	}
	sub := fs.lastSub()
	if sub.query.Collection != usersCollection || sub.query.ID != "me" {
		t.Fatalf("subscribed to %s", sub.query)
	}

	sub.fn(snapshot(), nil)
	if resolved != 0 || profile.Get() != nil {
		t.Fatalf("empty snapshot resolved the profile: calls=%d profile=%+v", resolved, profile.Get())
	}

	sub.fn(snapshot(profileDoc("me", "Ana", "111")), nil)
	sub.fn(snapshot(profileDoc("me", "Ana Lima", "111")), nil)
	if resolved != 1 {
		t.Errorf("onResolved ran %d times, want 1", resolved)
	}
	if got := profile.Get(); got == nil || got.Name != "Ana Lima" {
		t.Errorf("profile = %+v, want the latest snapshot", got)
	}
}

func TestProfileErrorKeepsLastValue(t *testing.T) {
	fs := &fakeStore{}
	p, profile, n := newTestProfile(fs)
	if err := p.Attach(context.Background(), "me", nil); err != nil {
		t.Fatal(err)
	}
	sub := fs.lastSub()
	sub.fn(snapshot(profileDoc("me", "Ana", "111")), nil)

	sub.fn(remote.Snapshot{}, errors.New("connection reset"))
	if got := profile.Get(); got == nil || got.Number != "111" {
		t.Errorf("profile = %+v after error, want the previous value", got)
	}
	msg, ok := n.Consume()
	if !ok || msg != "Cannot load profile: connection reset" {
		t.Errorf("notification = (%q, %v)", msg, ok)
	}
}

func TestProfileStaleCallbacks(t *testing.T) {
	fs := &fakeStore{}
	p, profile, n := newTestProfile(fs)

	resolved := 0
	onResolved := func(UserProfile) { resolved++ }
	if err := p.Attach(context.Background(), "me", onResolved); err != nil {
		t.Fatal(err)
	}
	old := fs.lastSub()

	p.Detach()
	if !old.isCancelled() {
		t.Error("Detach() should cancel the subscription")
	}
	old.fn(snapshot(profileDoc("me", "Ana", "111")), nil)
	old.fn(remote.Snapshot{}, errors.New("late"))
	if profile.Get() != nil || resolved != 0 {
		t.Fatalf("detached callback applied: profile=%+v calls=%d", profile.Get(), resolved)
	}
	if _, ok := n.Consume(); ok {
		t.Error("detached error callback should not notify")
	}

	if err := p.Attach(context.Background(), "other", onResolved); err != nil {
		t.Fatal(err)
	}
	old.fn(snapshot(profileDoc("me", "Ana", "111")), nil)
	if profile.Get() != nil || resolved != 0 {
		t.Fatalf("previous subscription leaked into the new one: profile=%+v", profile.Get())
	}

	fs.lastSub().fn(snapshot(profileDoc("other", "Bia", "222")), nil)
	if got := profile.Get(); got == nil || got.UserID != "other" || resolved != 1 {
		t.Errorf("profile = %+v calls=%d after current snapshot", got, resolved)
	}
}

func TestUpsertBeforeProfileLoadedKeepsStoredFields(t *testing.T) {
	st, _ := testBackend(t)
	ctx := context.Background()
	if err := st.Put(ctx, usersCollection, "me", map[string]any{
		"userId": "me", "name": "Ana", "number": "111", "status": "hi",
	}); err != nil {
		t.Fatal(err)
	}

	// The live query has not delivered yet, so nothing is held in memory.
	p, profile, _ := newTestProfile(st)
	if profile.Get() != nil {
		t.Fatal("profile should start empty")
	}
	if err := p.Upsert(ctx, "me", ProfileUpdate{ImageURL: "http://blobs.test/image/a"}); err != nil {
		t.Fatal(err)
	}

	snap, err := st.Get(ctx, remote.Doc(usersCollection, "me"))
	if err != nil {
		t.Fatal(err)
	}
	d, ok := snap.First()
	if !ok {
		t.Fatal("profile document missing")
	}
	want := map[string]any{
		"userId": "me", "name": "Ana", "number": "111", "status": "hi",
		"imageUrl": "http://blobs.test/image/a",
	}
	for k, v := range want {
		if d.Data[k] != v {
			t.Errorf("%s = %v, want %v", k, d.Data[k], v)
		}
	}
}

func TestUpsertCreatesFullRecord(t *testing.T) {
	st, _ := testBackend(t)
	ctx := context.Background()
	p, _, _ := newTestProfile(st)

	if err := p.Upsert(ctx, "me", ProfileUpdate{Name: "Ana", Number: "111"}); err != nil {
		t.Fatal(err)
	}
	snap, err := st.Get(ctx, remote.Doc(usersCollection, "me"))
	if err != nil {
		t.Fatal(err)
	}
	d, _ := snap.First()
	for _, k := range []string{"userId", "name", "number", "imageUrl", "status"} {
		if _, ok := d.Data[k]; !ok {
			t.Errorf("created profile lacks %q: %v", k, d.Data)
		}
	}
}

func TestProfileUpdateFields(t *testing.T) {
	got := ProfileUpdate{Status: "away"}.fields("me")
	if len(got) != 2 || got["userId"] != "me" || got["status"] != "away" {
		t.Errorf("fields = %v, want only userId and status", got)
	}
}
