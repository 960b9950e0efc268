package syncer

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

func newTestStatuses(st remote.Store, now time.Time) (*StatusSync, *Value[StatusFeed]) {
	feed := NewValue("statuses", nil, StatusFeed{})
	clock := func() time.Time { return now }
	return newStatusSync(st, NewNotifier(nil, nil), zap.NewNop(), clock, DefaultStatusWindow, feed, NewValue("loading", nil, false)), feed
}

func statusDoc(id, author string, ts time.Time) remote.Document {
	return doc(id, map[string]any{"user": ref(author, ""), "imageUrl": "http://img/" + id, "timestamp": ts.UnixMilli()})
}

func chatDoc(id, a, b string) remote.Document {
	return doc(id, map[string]any{"chatId": id, "user1": ref(a, ""), "user2": ref(b, "")})
}

func TestStatusWindowFiltersOldStatuses(t *testing.T) {
	now := time.Now()
	fs := &fakeStore{}
	s, feed := newTestStatuses(fs, now)
	if err := s.Attach(context.Background(), "me"); err != nil {
		t.Fatal(err)
	}

	fs.lastSub().fn(snapshot(chatDoc("c1", "me", "bob")), nil)
	stage2 := fs.lastSub()
	if stage2.query.Collection != statusCollection {
		t.Fatalf("second query on %q, want status", stage2.query.Collection)
	}
	and := stage2.query.Filter.Filters
	if and[0].Op != remote.OpGt || and[0].Value != now.Add(-24*time.Hour).UnixMilli() {
		t.Errorf("cutoff filter = %+v", and[0])
	}
	if !slices.Equal(and[1].Values, []any{"bob", "me"}) {
		t.Errorf("connection filter = %v", and[1].Values)
	}

	// The fake store does not filter, so this also checks the client-side window.
	stage2.fn(snapshot(
		statusDoc("fresh", "bob", now.Add(-23*time.Hour)),
		statusDoc("stale", "bob", now.Add(-25*time.Hour)),
	), nil)
	got := feed.Get()
	if len(got.All) != 1 || got.All[0].ID != "fresh" {
		t.Errorf("visible statuses = %+v, want only fresh", got.All)
	}
}

func TestStatusWindowLive(t *testing.T) {
	now := time.Now()
	st, _ := testBackend(t)
	ctx := context.Background()

	_ = st.Put(ctx, chatsCollection, "c1", chatDoc("c1", "bob", "me").Data)
	_ = st.Put(ctx, statusCollection, "s1", statusDoc("s1", "bob", now.Add(-23*time.Hour)).Data)
	_ = st.Put(ctx, statusCollection, "s2", statusDoc("s2", "bob", now.Add(-25*time.Hour)).Data)
	_ = st.Put(ctx, statusCollection, "s3", statusDoc("s3", "stranger", now.Add(-time.Hour)).Data)

	s, feed := newTestStatuses(st, now)
	if err := s.Attach(ctx, "me"); err != nil {
		t.Fatal(err)
	}
	defer s.Detach()

	got := waitFor(t, feed, "status feed", func(f StatusFeed) bool { return len(f.All) > 0 })
	if len(got.All) != 1 || got.All[0].ID != "s1" {
		t.Errorf("visible statuses = %+v, want only s1", got.All)
	}
}

func TestStatusFeedGrouping(t *testing.T) {
	now := time.Now()
	fs := &fakeStore{}
	s, feed := newTestStatuses(fs, now)
	_ = s.Attach(context.Background(), "me")
	fs.lastSub().fn(snapshot(chatDoc("c1", "me", "bob"), chatDoc("c2", "ann", "me")), nil)

	fs.lastSub().fn(snapshot(
		statusDoc("b1", "bob", now.Add(-3*time.Hour)),
		statusDoc("m1", "me", now.Add(-2*time.Hour)),
		statusDoc("b2", "bob", now.Add(-1*time.Hour)),
		statusDoc("a1", "ann", now.Add(-4*time.Hour)),
	), nil)

	got := feed.Get()
	if len(got.Mine) != 1 || got.Mine[0].ID != "m1" {
		t.Errorf("mine = %+v", got.Mine)
	}
	var others []string
	for _, st := range got.Others {
		others = append(others, st.ID)
	}
	if !slices.Equal(others, []string{"b1", "a1"}) {
		t.Errorf("others = %v, want first-seen [b1 a1]", others)
	}
	if n := len(got.ByAuthor("bob")); n != 2 {
		t.Errorf("ByAuthor(bob) = %d statuses, want 2", n)
	}
}

func TestStatusResubscribesOnlyWhenConnectionsChange(t *testing.T) {
	fs := &fakeStore{}
	s, _ := newTestStatuses(fs, time.Now())
	_ = s.Attach(context.Background(), "me")
	stage1 := fs.lastSub()

	stage1.fn(snapshot(chatDoc("c1", "me", "bob")), nil)
	first := fs.lastSub()
	if fs.subCount() != 2 {
		t.Fatalf("subscriptions = %d, want 2", fs.subCount())
	}

	stage1.fn(snapshot(chatDoc("c1", "bob", "me")), nil)
	if fs.subCount() != 2 {
		t.Errorf("same connections should not reopen the feed (subs = %d)", fs.subCount())
	}

	stage1.fn(snapshot(chatDoc("c1", "me", "bob"), chatDoc("c2", "me", "ann")), nil)
	if fs.subCount() != 3 {
		t.Fatalf("new connection should reopen the feed (subs = %d)", fs.subCount())
	}
	if !first.isCancelled() {
		t.Error("previous feed query should be cancelled")
	}
	if got := fs.lastSub().query.Filter.Filters[1].Values; !slices.Equal(got, []any{"ann", "bob", "me"}) {
		t.Errorf("connections = %v", got)
	}
}

func TestStatusStaleFeedCallback(t *testing.T) {
	now := time.Now()
	fs := &fakeStore{}
	s, feed := newTestStatuses(fs, now)
	_ = s.Attach(context.Background(), "me")
	stage1 := fs.lastSub()
	stage1.fn(snapshot(chatDoc("c1", "me", "bob")), nil)
	stage2 := fs.lastSub()

	s.Detach()
	if !stage1.isCancelled() || !stage2.isCancelled() {
		t.Error("Detach should cancel both queries")
	}
	stage2.fn(snapshot(statusDoc("x", "bob", now)), nil)
	stage1.fn(snapshot(chatDoc("c1", "me", "bob"), chatDoc("c2", "me", "ann")), nil)
	if len(feed.Get().All) != 0 {
		t.Error("stale callback repopulated the feed")
	}
	if fs.subCount() != 2 {
		t.Errorf("stale stage-one callback opened a new feed (subs = %d)", fs.subCount())
	}
}

func TestStatusRefreshExpires(t *testing.T) {
	now := time.Now()
	fs := &fakeStore{}
	feed := NewValue("statuses", nil, StatusFeed{})
	clock := now
	s := newStatusSync(fs, NewNotifier(nil, nil), zap.NewNop(), func() time.Time { return clock }, DefaultStatusWindow, feed, NewValue("loading", nil, false))

	_ = s.Attach(context.Background(), "me")
	fs.lastSub().fn(snapshot(chatDoc("c1", "me", "bob")), nil)
	fs.lastSub().fn(snapshot(statusDoc("s1", "bob", now.Add(-23*time.Hour))), nil)
	if len(feed.Get().All) != 1 {
		t.Fatal("status should be visible")
	}

	clock = now.Add(2 * time.Hour)
	s.Refresh()
	if len(feed.Get().All) != 0 {
		t.Error("status older than the window should expire on refresh")
	}
}

func TestConnectionSet(t *testing.T) {
	chats := []Chat{
		{User1: ChatUserRef{UserID: "me"}, User2: ChatUserRef{UserID: "bob"}},
		{User1: ChatUserRef{UserID: "ann"}, User2: ChatUserRef{UserID: "me"}},
		{User1: ChatUserRef{UserID: "bob"}, User2: ChatUserRef{UserID: "me"}},
		{User1: ChatUserRef{UserID: "x"}, User2: ChatUserRef{UserID: "y"}},
	}
	got := connectionSet("me", chats)
	if !slices.Equal(got, []string{"ann", "bob", "me"}) {
		t.Errorf("connectionSet = %v", got)
	}
}
