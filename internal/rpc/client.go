package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/chatsync/internal/remote"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to chatd and implements remote.Store, remote.Auth and
// remote.Blobs over a single connection.
type Client struct {
	conn   *grpc.ClientConn
	tokens *TokenCache
	now    func() time.Time

	mu    sync.RWMutex
	token string
}

var (
	_ remote.Store = (*Client)(nil)
	_ remote.Auth  = (*Client)(nil)
	_ remote.Blobs = (*Client)(nil)
)

// Dial connects to chatd. target is a unix socket path or a host:port;
// tokens may be nil. A cached token is picked up immediately.
func Dial(target string, tokens *TokenCache) (*Client, error) {
	token, err := tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	c := &Client{tokens: tokens, now: time.Now, token: token}

	conn, err := grpc.NewClient(
		dialTarget(target),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(c),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	c.conn = conn
	return c, nil
}

// Ping reports whether chatd answers a health check.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("daemon is %s", resp.GetStatus())
	}
	return nil
}

func dialTarget(target string) string {
	if strings.HasPrefix(target, "unix://") || strings.HasPrefix(target, "dns:///") {
		return target
	}
	if strings.HasPrefix(target, "/") || strings.HasPrefix(target, ".") {
		return "unix://" + target
	}
	return "passthrough:///" + target
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// GetRequestMetadata attaches the bearer token to every call.
func (c *Client) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity reports false: chatd is reached over a local
// socket or a trusted network.
func (c *Client) RequireTransportSecurity() bool { return false }

func (c *Client) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.invokeStruct(ctx, method, in)
}

func (c *Client) invokeStruct(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}

func (c *Client) setToken(token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	if token == "" {
		return c.tokens.Clear()
	}
	return c.tokens.Save(token)
}

func (c *Client) credentials(ctx context.Context, method, email, password string) (string, error) {
	out, err := c.invoke(ctx, method, map[string]any{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	if err := c.setToken(str(out, "token")); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return str(out, "uid"), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, MethodSignIn, email, password)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	return c.credentials(ctx, MethodSignUp, email, password)
}

func (c *Client) SignOut() error {
	return c.setToken("")
}

func (c *Client) CurrentUserID() string {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	return tokenSubject(token, c.now())
}

func (c *Client) Get(ctx context.Context, q remote.Query) (remote.Snapshot, error) {
	in, err := remote.QueryToStruct(q)
	if err != nil {
		return remote.Snapshot{}, err
	}
	out, err := c.invokeStruct(ctx, MethodGet, in)
	if err != nil {
		return remote.Snapshot{}, err
	}
	return remote.SnapshotFromStruct(out)
}

func (c *Client) Put(ctx context.Context, collection, id string, data map[string]any) error {
	body, err := remote.Normalize(data)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, MethodPut, map[string]any{"collection": collection, "id": id, "data": body})
	return err
}

func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := remote.Normalize(fields)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, MethodUpdate, map[string]any{"collection": collection, "id": id, "fields": body})
	return err
}

// NewID asks chatd for an id. On failure it returns "", which makes the
// following Put fail with a clear error.
func (c *Client) NewID(collection string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := c.invoke(ctx, MethodNewID, map[string]any{"collection": collection})
	if err != nil {
		return ""
	}
	return str(out, "id")
}

func (c *Client) Upload(ctx context.Context, data []byte, path string) (string, error) {
	out, err := c.invoke(ctx, MethodUpload, map[string]any{
		"path": path,
		"data": base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", err
	}
	return str(out, "url"), nil
}

func (c *Client) Subscribe(ctx context.Context, q remote.Query, fn remote.Listener) (remote.Subscription, error) {
	in, err := remote.QueryToStruct(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], MethodSubscribe)
	if err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	if err := stream.SendMsg(in); err != nil {
		cancel()
		return nil, fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, fromStatus(err)
	}

	go func() {
		defer cancel()
		for {
			out := new(structpb.Struct)
			if err := stream.RecvMsg(out); err != nil {
				if ctx.Err() == nil {
					fn(remote.Snapshot{}, fmt.Errorf("live query %s: %w", q, fromStatus(err)))
				}
				return
			}
			snap, err := remote.SnapshotFromStruct(out)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				fn(remote.Snapshot{}, err)
				return
			}
			fn(snap, nil)
		}
	}()
	return remote.SubscriptionFunc(cancel), nil
}
