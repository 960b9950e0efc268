package syncer

import (
	"context"
	"slices"
	"time"

	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
)

// DefaultStatusWindow is how long a status stays visible.
const DefaultStatusWindow = 24 * time.Hour

// StatusFeed is the status view of the signed-in user.
type StatusFeed struct {
	// All holds every visible status in delivery order.
	All []Status
	// Mine holds the user's own statuses.
	Mine []Status
	// Others holds one status per other author: the first one delivered.
	Others []Status
}

// ByAuthor returns every visible status posted by uid.
func (f StatusFeed) ByAuthor(uid string) []Status {
	var out []Status
	for _, s := range f.All {
		if s.User.UserID == uid {
			out = append(out, s)
		}
	}
	return out
}

func buildFeed(uid string, statuses []Status, cutoff int64) StatusFeed {
	var feed StatusFeed
	seen := make(map[string]bool)
	for _, s := range statuses {
		if s.Timestamp <= cutoff {
			continue
		}
		feed.All = append(feed.All, s)
		author := s.User.UserID
		if author == uid {
			feed.Mine = append(feed.Mine, s)
			continue
		}
		if !seen[author] {
			seen[author] = true
			feed.Others = append(feed.Others, s)
		}
	}
	return feed
}

// connectionSet returns uid plus every chat partner of uid, sorted.
func connectionSet(uid string, chats []Chat) []string {
	set := []string{uid}
	for _, c := range chats {
		if !c.Involves(uid) {
			continue
		}
		if p := c.Partner(uid).UserID; p != "" && !slices.Contains(set, p) {
			set = append(set, p)
		}
	}
	slices.Sort(set)
	return set
}

// StatusSync follows the user's chats to learn their connections, then
// follows the recent statuses of those connections. The second query is
// reopened whenever the connection set changes.
type StatusSync struct {
	store    remote.Store
	notifier *Notifier
	logger   *zap.Logger
	clock    func() time.Time
	window   time.Duration

	chatsSlot   slot
	connections []string // guarded by chatsSlot.mu

	feedSlot slot
	feedUID  string   // guarded by feedSlot.mu
	raw      []Status // guarded by feedSlot.mu

	feed    *Value[StatusFeed]
	loading *Value[bool]
}

func newStatusSync(st remote.Store, n *Notifier, logger *zap.Logger, clock func() time.Time, window time.Duration, feed *Value[StatusFeed], loading *Value[bool]) *StatusSync {
	return &StatusSync{store: st, notifier: n, logger: logger, clock: clock, window: window, feed: feed, loading: loading}
}

func (s *StatusSync) cutoff() int64 {
	return s.clock().Add(-s.window).UnixMilli()
}

// Attach starts following the statuses visible to uid.
func (s *StatusSync) Attach(ctx context.Context, uid string) error {
	// Stage one moves first so a late callback of the previous attach
	// cannot open a feed after the reset below.
	epoch := s.chatsSlot.begin(func() {
		s.connections = nil
		s.loading.set(true)
	})
	s.feedSlot.cancel(func() {
		s.feedUID = uid
		s.raw = nil
		s.feed.set(StatusFeed{})
	})

	q := remote.Collection(chatsCollection).Where(involving(uid))
	sub, err := s.store.Subscribe(ctx, q, func(snap remote.Snapshot, err error) {
		if err != nil {
			if s.chatsSlot.guard(epoch, func() { s.loading.set(false) }) {
				s.notifier.Report(remoteError("Cannot retrieve statuses", err))
			}
			return
		}
		conns := connectionSet(uid, decodeChats(snap))
		changed := false
		s.chatsSlot.guard(epoch, func() {
			if !slices.Equal(conns, s.connections) {
				s.connections = conns
				changed = true
			}
		})
		if changed {
			s.openFeed(ctx, epoch, uid, conns)
		}
	})
	if err != nil {
		s.chatsSlot.guard(epoch, func() { s.loading.set(false) })
		err = remoteError("Cannot retrieve statuses", err)
		s.notifier.Report(err)
		return err
	}
	s.chatsSlot.bind(epoch, sub)
	return nil
}

func (s *StatusSync) openFeed(ctx context.Context, chatsEpoch uint64, uid string, conns []string) {
	epoch, ok := s.feedSlot.beginIf(func() bool { return s.chatsSlot.current(chatsEpoch) }, nil)
	if !ok {
		return
	}

	ids := make([]any, len(conns))
	for i, c := range conns {
		ids[i] = c
	}
	q := remote.Collection(statusCollection).Where(remote.And(
		remote.Gt("timestamp", s.cutoff()),
		remote.In("user.userId", ids...),
	))
	s.logger.Debug("following statuses", zap.Int("connections", len(conns)))

	sub, err := s.store.Subscribe(ctx, q, func(snap remote.Snapshot, err error) {
		if err != nil {
			if s.feedSlot.guard(epoch, func() { s.loading.set(false) }) {
				s.notifier.Report(remoteError("Cannot retrieve statuses", err))
			}
			return
		}
		statuses := decodeStatuses(snap)
		s.feedSlot.guard(epoch, func() {
			s.raw = statuses
			s.feed.set(buildFeed(uid, statuses, s.cutoff()))
			s.loading.set(false)
		})
	})
	if err != nil {
		if s.feedSlot.guard(epoch, func() { s.loading.set(false) }) {
			s.notifier.Report(remoteError("Cannot retrieve statuses", err))
		}
		return
	}
	s.feedSlot.bind(epoch, sub)
}

// Refresh reapplies the visibility window to the last delivery, so
// statuses expire even when nothing new arrives.
func (s *StatusSync) Refresh() {
	s.feedSlot.mu.Lock()
	defer s.feedSlot.mu.Unlock()
	if s.feedUID == "" {
		return
	}
	next := buildFeed(s.feedUID, s.raw, s.cutoff())
	if len(next.All) != len(s.feed.Get().All) {
		s.feed.set(next)
	}
}

// Detach stops both queries and clears the feed.
func (s *StatusSync) Detach() {
	s.chatsSlot.cancel(func() {
		s.connections = nil
		s.loading.set(false)
	})
	s.feedSlot.cancel(func() {
		s.feedUID = ""
		s.raw = nil
		s.feed.set(StatusFeed{})
	})
}

// Post appends a status by author.
func (s *StatusSync) Post(ctx context.Context, author UserProfile, imageURL string) (Status, error) {
	st := Status{User: author.Ref(), ImageURL: imageURL, Timestamp: s.clock().UnixMilli()}
	data, err := remote.ToData(st)
	if err != nil {
		return Status{}, remoteError("Cannot post status", err)
	}
	st.ID = s.store.NewID(statusCollection)
	if err := s.store.Put(ctx, statusCollection, st.ID, data); err != nil {
		return Status{}, remoteError("Cannot post status", err)
	}
	return st, nil
}
