package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/docstore"
	"github.com/matheus3301/chatsync/internal/remote"
	"github.com/matheus3301/chatsync/internal/store"
)

// fakeStore records calls and hands live queries back to the test, which
// delivers snapshots by hand.
type fakeStore struct {
	mu    sync.Mutex
	calls []string
	subs  []*fakeSub
	next  int
}

type fakeSub struct {
	query remote.Query
	fn    remote.Listener

	mu        sync.Mutex
	cancelled bool
}

func (s *fakeSub) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

func (s *fakeSub) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) lastSub() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

func (f *fakeStore) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeStore) Subscribe(_ context.Context, q remote.Query, fn remote.Listener) (remote.Subscription, error) {
	f.record("subscribe " + q.String())
	sub := &fakeSub{query: q, fn: fn}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeStore) Get(_ context.Context, q remote.Query) (remote.Snapshot, error) {
	f.record("get " + q.String())
	return remote.Snapshot{}, nil
}

func (f *fakeStore) Put(_ context.Context, collection, id string, _ map[string]any) error {
	f.record("put " + collection + "/" + id)
	return nil
}

func (f *fakeStore) Update(_ context.Context, collection, id string, _ map[string]any) error {
	f.record("update " + collection + "/" + id)
	return nil
}

func (f *fakeStore) NewID(string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return fmt.Sprintf("id-%d", f.next)
}

type fakeBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (b *fakeBlobs) Upload(_ context.Context, _ []byte, key string) (string, error) {
	b.mu.Lock()
	b.keys = append(b.keys, key)
	b.mu.Unlock()
	return "http://blobs.test/" + key, nil
}

// testBackend returns a sqlite-backed document store and auth service.
func testBackend(t *testing.T) (*docstore.Store, *auth.Service) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return docstore.New(db, bus.New(), nil, nil), auth.NewService(db, []byte("test"), time.Hour, nil)
}

func waitFor[T any](t *testing.T, v *Value[T], what string, pred func(T) bool) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	got, err := v.Wait(ctx, pred)
	if err != nil {
		t.Fatalf("timeout waiting for %s (last value %+v)", what, got)
	}
	return got
}

func doc(id string, data map[string]any) remote.Document {
	return remote.Document{ID: id, Data: data}
}

func snapshot(docs ...remote.Document) remote.Snapshot {
	return remote.Snapshot{Docs: docs}
}

func ref(uid, number string) map[string]any {
	return map[string]any{"userId": uid, "name": "user " + uid, "number": number, "imageUrl": ""}
}
