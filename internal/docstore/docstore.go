// Package docstore implements remote.Store on top of the sqlite store,
// pushing a fresh snapshot to every live query whose collection changes.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/metrics"
	"github.com/matheus3301/chatsync/internal/remote"
	"github.com/matheus3301/chatsync/internal/store"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Store is a document store with live queries.
type Store struct {
	db      *store.DB
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
}

var _ remote.Store = (*Store)(nil)

// New creates a document store. m and logger may be nil.
func New(db *store.DB, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, bus: b, metrics: m, logger: logger}
}

// ChangedKind is the bus event kind published when collection changes.
func ChangedKind(collection string) string {
	return "doc." + collection + ".changed"
}

// NewID returns a time-ordered ULID, so documents listed by id come back
// in creation order.
func (s *Store) NewID(string) string {
	return ulid.Make().String()
}

// Get runs q once.
func (s *Store) Get(_ context.Context, q remote.Query) (remote.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return remote.Snapshot{}, err
	}
	return s.run(q)
}

func (s *Store) run(q remote.Query) (remote.Snapshot, error) {
	var rows []store.Document
	if q.ID != "" {
		d, err := s.db.GetDocument(q.Collection, q.ID)
		if err != nil {
			return remote.Snapshot{}, fmt.Errorf("get %s: %w", q, err)
		}
		if d != nil {
			rows = append(rows, *d)
		}
	} else {
		var err error
		rows, err = s.db.ListDocuments(q.Collection)
		if err != nil {
			return remote.Snapshot{}, fmt.Errorf("list %s: %w", q.Collection, err)
		}
	}

	var snap remote.Snapshot
	for _, row := range rows {
		var data map[string]any
		if err := json.Unmarshal(row.Data, &data); err != nil {
			s.logger.Warn("skipping undecodable document",
				zap.String("collection", row.Collection),
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		doc := remote.Document{ID: row.ID, Data: data}
		if q.Matches(doc) {
			snap.Docs = append(snap.Docs, doc)
		}
	}
	return snap, nil
}

// Put creates or replaces a document.
func (s *Store) Put(_ context.Context, collection, id string, data map[string]any) error {
	if err := remote.Collection(collection).Validate(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: missing document id", remote.ErrInvalidQuery)
	}
	norm, err := remote.Normalize(data)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if err := s.db.PutDocument(collection, id, b); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	s.metrics.Write("put")
	s.changed(collection, id)
	return nil
}

// Update merges fields into an existing document.
func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	if err := remote.Collection(collection).Validate(); err != nil {
		return err
	}
	norm, err := remote.Normalize(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	ok, err := s.db.PatchDocument(collection, id, func(old []byte) ([]byte, error) {
		var data map[string]any
		if err := json.Unmarshal(old, &data); err != nil {
			return nil, err
		}
		if data == nil {
			data = make(map[string]any)
		}
		for path, v := range norm {
			remote.SetPath(data, path, v)
		}
		return json.Marshal(data)
	})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if !ok {
		return fmt.Errorf("update %s/%s: %w", collection, id, remote.ErrNotFound)
	}
	s.metrics.Write("update")
	s.changed(collection, id)
	return nil
}

func (s *Store) changed(collection, id string) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(ChangedKind(collection), id)
}

// Subscribe opens a live query. The first snapshot is delivered
// asynchronously right away; later ones follow each change to the
// collection whose result differs from the previous delivery.
func (s *Store) Subscribe(ctx context.Context, q remote.Query, fn remote.Listener) (remote.Subscription, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if s.bus == nil {
		return nil, fmt.Errorf("live queries need an event bus")
	}

	// Register before the first read so no write can slip between them.
	events, unsub := s.bus.Subscribe(ChangedKind(q.Collection), 1)
	first, err := s.run(q)
	if err != nil {
		unsub()
		return nil, err
	}

	lq := &liveQuery{
		store:  s,
		query:  q,
		fn:     fn,
		events: events,
		unsub:  unsub,
		done:   make(chan struct{}),
	}
	s.metrics.SubscriptionOpened()
	s.logger.Debug("live query opened", zap.Stringer("query", q))
	go lq.loop(ctx, first)
	return remote.SubscriptionFunc(lq.cancel), nil
}

type liveQuery struct {
	store  *Store
	query  remote.Query
	fn     remote.Listener
	events <-chan bus.Event
	unsub  func()

	once sync.Once
	done chan struct{}
	last string
}

func (lq *liveQuery) cancel() {
	lq.once.Do(func() { close(lq.done) })
}

func (lq *liveQuery) loop(ctx context.Context, first remote.Snapshot) {
	defer func() {
		lq.unsub()
		lq.store.metrics.SubscriptionClosed()
		lq.store.logger.Debug("live query closed", zap.Stringer("query", lq.query))
	}()

	lq.deliver(first)
	for {
		select {
		case <-ctx.Done():
			return
		case <-lq.done:
			return
		case <-lq.events:
			snap, err := lq.store.run(lq.query)
			if err != nil {
				if !lq.stopped() {
					lq.fn(remote.Snapshot{}, err)
				}
				return
			}
			lq.deliver(snap)
		}
	}
}

func (lq *liveQuery) stopped() bool {
	select {
	case <-lq.done:
		return true
	default:
		return false
	}
}

func (lq *liveQuery) deliver(snap remote.Snapshot) {
	b, _ := json.Marshal(snap.Docs)
	key := string(b)
	if key == lq.last && lq.last != "" {
		return
	}
	lq.last = key
	if lq.stopped() {
		return
	}
	lq.fn(snap, nil)
	lq.store.metrics.SnapshotDelivered()
}
