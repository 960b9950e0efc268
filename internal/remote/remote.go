// Package remote declares the collaborators the chat client is built on:
// a document store with live queries, an auth provider and blob storage.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Update when the target document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidQuery is returned when a query or filter is malformed.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnauthenticated is returned when an operation needs a signed-in user.
	ErrUnauthenticated = errors.New("not signed in")
)

// Listener receives every snapshot of a live query. A non-nil error means
// the subscription failed; no further snapshots follow it.
type Listener func(Snapshot, error)

// Subscription is a live query handle. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

// Cancel calls f.
func (f SubscriptionFunc) Cancel() { f() }

// Store is a document database with push-based live queries.
type Store interface {
	// Subscribe opens a live query. The listener receives the full result
	// set now and again every time it changes, until the subscription is
	// cancelled or ctx is done.
	Subscribe(ctx context.Context, q Query, fn Listener) (Subscription, error)
	// Get runs a query once.
	Get(ctx context.Context, q Query) (Snapshot, error)
	// Put creates or replaces a document.
	Put(ctx context.Context, collection, id string, data map[string]any) error
	// Update merges fields into an existing document. Field names may be
	// dotted paths. Returns ErrNotFound if the document is missing.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// NewID returns a fresh unique document id for collection.
	NewID(collection string) string
}

// Auth is an email/password identity provider.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (string, error)
	SignUp(ctx context.Context, email, password string) (string, error)
	SignOut() error
	// CurrentUserID returns the signed-in user id, or "" when signed out.
	CurrentUserID() string
}

// Blobs stores binary objects and hands back a download URL.
type Blobs interface {
	Upload(ctx context.Context, data []byte, path string) (string, error)
}
