package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/matheus3301/chatsync/internal/blob"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/metrics"
	"github.com/matheus3301/chatsync/internal/remote"
	"github.com/matheus3301/chatsync/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server manages the gRPC server lifecycle for an instance daemon.
type Server struct {
	grpcServer *grpc.Server
	unix       net.Listener
	tcp        net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the instance's Unix domain
// socket, plus the optional TCP listener from [server] listen.
func NewServer(p Params, cfg *config.Config, svc *rpc.Service, logger *zap.Logger) (*Server, error) {
	socketPath := p.socket()

	// Clean stale socket if it exists.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	unixLis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}

	// Set socket permissions to 0600.
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = unixLis.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	var tcpLis net.Listener
	if cfg.Server.Listen != "" {
		if tcpLis, err = net.Listen("tcp", cfg.Server.Listen); err != nil {
			_ = unixLis.Close()
			return nil, fmt.Errorf("listen tcp: %w", err)
		}
	}

	return &Server{
		grpcServer: rpc.NewServer(svc),
		unix:       unixLis,
		tcp:        tcpLis,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start serves gRPC on every listener in the background.
func (s *Server) Start() {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	go s.serve(s.unix)
	if s.tcp != nil {
		s.logger.Info("gRPC server listening on tcp", zap.String("addr", s.tcp.Addr().String()))
		go s.serve(s.tcp)
	}
}

func (s *Server) serve(lis net.Listener) {
	if err := s.grpcServer.Serve(lis); err != nil {
		s.logger.Error("gRPC server error", zap.Error(err))
	}
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("gRPC server stopping")
	s.grpcServer.GracefulStop()
	_ = os.Remove(s.socketPath)
}

// HTTPServer serves blobs, metrics and a health check. It is inert when
// [server] http_addr is empty.
type HTTPServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewHTTPServer builds the HTTP side of chatd.
func NewHTTPServer(cfg *config.Config, m *metrics.Metrics, blobs remote.Blobs, logger *zap.Logger) (*HTTPServer, error) {
	h := &HTTPServer{logger: logger}
	if cfg.Server.HTTPAddr == "" {
		return h, nil
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	if fs, ok := blobs.(*blob.FS); ok {
		r.Route("/blobs", fs.Routes)
	}

	lis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen http: %w", err)
	}
	h.listener = lis
	h.srv = &http.Server{
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return h, nil
}

// Addr returns the bound address, or "" when HTTP is disabled.
func (h *HTTPServer) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Start serves HTTP in the background.
func (h *HTTPServer) Start() {
	if h.srv == nil {
		return
	}
	h.logger.Info("http server starting", zap.String("addr", h.Addr()))
	go func() {
		if err := h.srv.Serve(h.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("http server error", zap.Error(err))
		}
	}()
}

// Stop shuts the HTTP server down.
func (h *HTTPServer) Stop(ctx context.Context) {
	if h.srv == nil {
		return
	}
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("http shutdown", zap.Error(err))
	}
}
