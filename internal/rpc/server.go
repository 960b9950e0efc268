package rpc

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/metrics"
	"github.com/matheus3301/chatsync/internal/remote"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MaxMessageSize bounds request and response sizes. Uploads travel
// base64-encoded, so it sits comfortably above blob.MaxSize.
const MaxMessageSize = 16 << 20

type ctxKey struct{}

// UserID returns the authenticated uid attached by the auth interceptors.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(ctxKey{}).(string)
	return uid
}

// Service implements BackendServer on top of the local stores.
type Service struct {
	store   remote.Store
	auth    *auth.Service
	blobs   remote.Blobs
	metrics *metrics.Metrics
	logger  *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

var _ BackendServer = (*Service)(nil)

// NewService creates the Backend service.
func NewService(st remote.Store, a *auth.Service, blobs remote.Blobs, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   st,
		auth:    a,
		blobs:   blobs,
		metrics: m,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// NewServer returns a grpc.Server with the service and its interceptors
// registered.
func NewServer(svc *Service) *grpc.Server {
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
		grpc.ChainUnaryInterceptor(svc.unaryInterceptor),
		grpc.ChainStreamInterceptor(svc.streamInterceptor),
	)
	RegisterBackendServer(srv, svc)
	healthpb.RegisterHealthServer(srv, health.NewServer())
	return srv
}

// Close ends every open Subscribe stream so GracefulStop can return.
func (s *Service) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// anonymous reports whether a call may run without a token. The user
// directory stays readable so sign-up can check that a number is free.
func anonymous(method string, req any) bool {
	switch method {
	case MethodSignUp, MethodSignIn, healthpb.Health_Check_FullMethodName:
		return true
	case MethodGet:
		q, _ := req.(*structpb.Struct)
		return str(q, "collection") == "users"
	}
	return false
}

func (s *Service) authenticate(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing bearer token")
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok {
		return "", status.Error(codes.Unauthenticated, "malformed authorization header")
	}
	uid, err := s.auth.VerifyToken(token)
	if err != nil {
		return "", toStatus(err)
	}
	return uid, nil
}

func methodName(full string) string {
	return full[strings.LastIndex(full, "/")+1:]
}

func (s *Service) unaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	var resp any
	uid, err := s.authenticate(ctx)
	if err == nil {
		resp, err = handler(context.WithValue(ctx, ctxKey{}, uid), req)
	} else if anonymous(info.FullMethod, req) {
		resp, err = handler(ctx, req)
	}
	s.metrics.RPC(methodName(info.FullMethod), status.Code(err).String())
	return resp, err
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authedStream) Context() context.Context { return a.ctx }

func (s *Service) streamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	uid, err := s.authenticate(ss.Context())
	if err == nil {
		err = handler(srv, &authedStream{ServerStream: ss, ctx: context.WithValue(ss.Context(), ctxKey{}, uid)})
	}
	s.metrics.RPC(methodName(info.FullMethod), status.Code(err).String())
	return err
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func credentialsResponse(uid, token string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"uid": uid, "token": token})
}

func (s *Service) SignUp(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid, err := s.auth.SignUp(str(req, "email"), str(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	token, err := s.auth.IssueToken(uid)
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("account created", zap.String("uid", uid))
	return credentialsResponse(uid, token)
}

func (s *Service) SignIn(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	uid, err := s.auth.SignIn(str(req, "email"), str(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	token, err := s.auth.IssueToken(uid)
	if err != nil {
		return nil, toStatus(err)
	}
	return credentialsResponse(uid, token)
}

func (s *Service) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := remote.QueryFromStruct(req)
	if err != nil {
		return nil, toStatus(err)
	}
	snap, err := s.store.Get(ctx, q)
	if err != nil {
		return nil, toStatus(err)
	}
	return remote.SnapshotToStruct(snap)
}

func (s *Service) Put(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, id := str(req, "collection"), str(req, "id")
	if collection == "" || id == "" {
		return nil, status.Error(codes.InvalidArgument, "collection and id are required")
	}
	if err := s.store.Put(ctx, collection, id, req.GetFields()["data"].GetStructValue().AsMap()); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Debug("document put", zap.String("uid", UserID(ctx)), zap.String("collection", collection), zap.String("id", id))
	return &structpb.Struct{}, nil
}

func (s *Service) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	collection, id := str(req, "collection"), str(req, "id")
	if collection == "" || id == "" {
		return nil, status.Error(codes.InvalidArgument, "collection and id are required")
	}
	if err := s.store.Update(ctx, collection, id, req.GetFields()["fields"].GetStructValue().AsMap()); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Debug("document updated", zap.String("uid", UserID(ctx)), zap.String("collection", collection), zap.String("id", id))
	return &structpb.Struct{}, nil
}

func (s *Service) NewID(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"id": s.store.NewID(str(req, "collection"))})
}

func (s *Service) Upload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.blobs == nil {
		return nil, status.Error(codes.Unimplemented, "blob storage not configured")
	}
	data, err := base64.StdEncoding.DecodeString(str(req, "data"))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode upload: %v", err)
	}
	url, err := s.blobs.Upload(ctx, data, str(req, "path"))
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("blob uploaded", zap.String("uid", UserID(ctx)), zap.String("path", str(req, "path")), zap.Int("bytes", len(data)))
	return structpb.NewStruct(map[string]any{"url": url})
}

func (s *Service) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	q, err := remote.QueryFromStruct(req)
	if err != nil {
		return toStatus(err)
	}
	ctx := stream.Context()
	failed := make(chan error, 1)
	fail := func(err error) {
		select {
		case failed <- err:
		default:
		}
	}

	// SendMsg must not run after the handler returns.
	var (
		mu     sync.Mutex
		closed bool
	)
	sub, err := s.store.Subscribe(ctx, q, func(snap remote.Snapshot, err error) {
		if err != nil {
			fail(err)
			return
		}
		msg, err := remote.SnapshotToStruct(snap)
		if err != nil {
			fail(err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		if err := stream.SendMsg(msg); err != nil {
			fail(err)
		}
	})
	if err != nil {
		return toStatus(err)
	}
	defer func() {
		sub.Cancel()
		mu.Lock()
		closed = true
		mu.Unlock()
	}()

	s.logger.Debug("live query opened", zap.String("uid", UserID(ctx)), zap.Stringer("query", q))
	select {
	case <-ctx.Done():
		return nil
	case <-s.done:
		return status.Error(codes.Unavailable, "server shutting down")
	case err := <-failed:
		return toStatus(err)
	}
}
