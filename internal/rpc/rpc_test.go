package rpc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/blob"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/docstore"
	"github.com/matheus3301/chatsync/internal/metrics"
	"github.com/matheus3301/chatsync/internal/remote"
	"github.com/matheus3301/chatsync/internal/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// testServer starts a Backend on a unix socket and returns its path.
func testServer(t *testing.T) (string, *Service) {
	t.Helper()
	// Short path to stay under the unix socket length limit.
	dir, err := os.MkdirTemp("/tmp", "chatsync-rpc-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	db, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	blobs, err := blob.NewFS(filepath.Join(dir, "blobs"), "http://blobs.test")
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	svc := NewService(
		docstore.New(db, bus.New(), m, nil),
		auth.NewService(db, []byte("test"), time.Hour, nil),
		blobs, m, nil,
	)

	socketPath := filepath.Join(dir, "d.sock")
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		svc.Close()
		srv.GracefulStop()
	})
	return socketPath, svc
}

func testClient(t *testing.T, socketPath string, tokens *TokenCache) *Client {
	t.Helper()
	c, err := Dial(socketPath, tokens)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSignUpPutGet(t *testing.T) {
	socketPath, _ := testServer(t)
	c := testClient(t, socketPath, nil)
	ctx := context.Background()

	if c.CurrentUserID() != "" {
		t.Fatal("new client should be signed out")
	}
	uid, err := c.SignUp(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if c.CurrentUserID() != uid {
		t.Errorf("CurrentUserID() = %q, want %q", c.CurrentUserID(), uid)
	}

	if err := c.Put(ctx, "users", uid, map[string]any{"userId": uid, "number": "111"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Update(ctx, "users", uid, map[string]any{"name": "Ana"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	snap, err := c.Get(ctx, remote.Collection("users").Where(remote.Eq("number", "111")))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	d, ok := snap.First()
	if !ok || d.ID != uid || d.Data["name"] != "Ana" {
		t.Errorf("Get() = %+v", snap)
	}

	err = c.Update(ctx, "users", "missing", map[string]any{"name": "x"})
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUnauthenticatedCallsRejected(t *testing.T) {
	socketPath, _ := testServer(t)
	c := testClient(t, socketPath, nil)

	_, err := c.Get(context.Background(), remote.Collection("chats"))
	if !errors.Is(err, remote.ErrUnauthenticated) {
		t.Errorf("Get(chats) error = %v, want ErrUnauthenticated", err)
	}
	if _, err := c.Get(context.Background(), remote.Collection("users").Where(remote.Eq("number", "1"))); err != nil {
		t.Errorf("Get(users) signed out error = %v, want directory lookup allowed", err)
	}
	err = c.Put(context.Background(), "users", "u1", map[string]any{"number": "1"})
	if !errors.Is(err, remote.ErrUnauthenticated) {
		t.Errorf("Put() error = %v, want ErrUnauthenticated", err)
	}
	if id := c.NewID("chats"); id != "" {
		t.Errorf("NewID() = %q, want empty when signed out", id)
	}
}

func TestPingWithoutToken(t *testing.T) {
	socketPath, _ := testServer(t)
	c := testClient(t, socketPath, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestSignInErrors(t *testing.T) {
	socketPath, _ := testServer(t)
	c := testClient(t, socketPath, nil)
	ctx := context.Background()

	if _, err := c.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SignUp(ctx, "ana@example.com", "secret1"); !errors.Is(err, auth.ErrEmailTaken) {
		t.Errorf("second SignUp() error = %v, want ErrEmailTaken", err)
	}
	if _, err := c.SignIn(ctx, "ana@example.com", "wrong-pw"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("SignIn(wrong) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestTokenCachePersistsSession(t *testing.T) {
	socketPath, _ := testServer(t)
	tokens := NewTokenCache(filepath.Join(t.TempDir(), "token"))
	ctx := context.Background()

	first := testClient(t, socketPath, tokens)
	uid, err := first.SignUp(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	second := testClient(t, socketPath, tokens)
	if second.CurrentUserID() != uid {
		t.Fatalf("restored CurrentUserID() = %q, want %q", second.CurrentUserID(), uid)
	}
	if _, err := second.Get(ctx, remote.Collection("users")); err != nil {
		t.Errorf("Get() with cached token error = %v", err)
	}

	if err := second.SignOut(); err != nil {
		t.Fatal(err)
	}
	if second.CurrentUserID() != "" {
		t.Error("CurrentUserID() after SignOut should be empty")
	}
	if tok, _ := tokens.Load(); tok != "" {
		t.Errorf("token after SignOut = %q, want empty", tok)
	}
}

func TestSubscribeStreamsSnapshots(t *testing.T) {
	socketPath, _ := testServer(t)
	c := testClient(t, socketPath, nil)
	ctx := context.Background()
	if _, err := c.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	snaps := make(chan remote.Snapshot, 8)
	sub, err := c.Subscribe(ctx, remote.Collection("chats"), func(snap remote.Snapshot, err error) {
		if err != nil {
			t.Errorf("listener error = %v", err)
			return
		}
		snaps <- snap
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Cancel()

	next := func() remote.Snapshot {
		t.Helper()
		select {
		case s := <-snaps:
			return s
		case <-time.After(3 * time.Second):
			t.Fatal("timeout waiting for snapshot")
			return remote.Snapshot{}
		}
	}
	if s := next(); !s.Empty() {
		t.Fatalf("initial snapshot = %+v, want empty", s)
	}

	id := c.NewID("chats")
	if id == "" {
		t.Fatal("NewID() returned empty id")
	}
	if err := c.Put(ctx, "chats", id, map[string]any{"chatId": id}); err != nil {
		t.Fatal(err)
	}
	s := next()
	if d, ok := s.First(); !ok || d.ID != id {
		t.Errorf("snapshot after Put = %+v", s)
	}
}

func TestUpload(t *testing.T) {
	socketPath, _ := testServer(t)
	c := testClient(t, socketPath, nil)
	ctx := context.Background()
	if _, err := c.SignUp(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	url, err := c.Upload(ctx, []byte("png-bytes"), "image/abc")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "http://blobs.test/image/abc" {
		t.Errorf("Upload() url = %q", url)
	}
	if _, err := c.Upload(ctx, []byte("x"), "../escape"); !errors.Is(err, remote.ErrInvalidQuery) {
		t.Errorf("Upload(bad key) error = %v, want invalid argument", err)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", remote.ErrNotFound, codes.NotFound},
		{"invalid query", remote.ErrInvalidQuery, codes.InvalidArgument},
		{"invalid input", auth.ErrInvalidInput, codes.InvalidArgument},
		{"email taken", auth.ErrEmailTaken, codes.AlreadyExists},
		{"bad credentials", auth.ErrInvalidCredentials, codes.PermissionDenied},
		{"bad token", auth.ErrInvalidToken, codes.Unauthenticated},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toStatus(tt.err)
			if status.Code(got) != tt.code {
				t.Errorf("toStatus(%v) code = %v, want %v", tt.err, status.Code(got), tt.code)
			}
		})
	}
}

func TestDialTarget(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/tmp/d.sock", "unix:///tmp/d.sock"},
		{"unix:///tmp/d.sock", "unix:///tmp/d.sock"},
		{"localhost:7070", "passthrough:///localhost:7070"},
	}
	for _, tt := range tests {
		if got := dialTarget(tt.in); got != tt.want {
			t.Errorf("dialTarget(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
