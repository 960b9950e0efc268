package daemon

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/blob"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/docstore"
	"github.com/matheus3301/chatsync/internal/instance"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/metrics"
	"github.com/matheus3301/chatsync/internal/remote"
	"github.com/matheus3301/chatsync/internal/rpc"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	Instance   string
	SocketPath string         // optional override for testing; empty = use default
	Config     *config.Config // optional; nil = load ~/.chatsync/config.toml
	Stderr     bool           // mirror logs to stderr
}

func (p Params) socket() string {
	if p.SocketPath != "" {
		return p.SocketPath
	}
	return instance.SocketPath(p.Instance)
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideMetrics,
			provideLock,
			provideStore,
			provideDocstore,
			provideAuth,
			provideBlobs,
			provideRPC,
			NewServer,
			NewHTTPServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, p.Config.Validate()
	}
	return config.LoadOrDefault(instance.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(instance.LogPath(p.Instance, "chatd"), p.Instance, logging.Options{
		Level:  cfg.Log.Level,
		Stderr: p.Stderr,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideMetrics(b *bus.Bus) *metrics.Metrics {
	m := metrics.New()
	m.WatchDrops(b)
	return m
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.Instance); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock", zap.String("instance", p.Instance))
	l, err := lock.Acquire(instance.Dir(p.Instance), p.socket())
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired", zap.Int("pid", l.Info().PID))
	return l, nil
}

// provideStore takes the lock so the database is never opened by two daemons.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := instance.DBPath(p.Instance)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideDocstore(db *store.DB, b *bus.Bus, m *metrics.Metrics, logger *zap.Logger) *docstore.Store {
	return docstore.New(db, b, m, logger.Named("docstore"))
}

func provideAuth(p Params, cfg *config.Config, db *store.DB, logger *zap.Logger) (*auth.Service, error) {
	ttl, err := cfg.TokenTTLDuration()
	if err != nil {
		return nil, err
	}
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		if secret, err = auth.LoadOrCreateSecret(instance.JWTKeyPath(p.Instance)); err != nil {
			return nil, fmt.Errorf("token key: %w", err)
		}
	}
	return auth.NewService(db, secret, ttl, logger.Named("auth")), nil
}

func provideBlobs(p Params, cfg *config.Config, logger *zap.Logger) (remote.Blobs, error) {
	switch cfg.Blob.Backend {
	case config.BlobS3:
		s3cfg := cfg.Blob.S3
		logger.Info("blob backend s3", zap.String("bucket", s3cfg.Bucket), zap.String("endpoint", s3cfg.Endpoint))
		return blob.NewS3(context.Background(), blob.S3Options{
			Region:    s3cfg.Region,
			Bucket:    s3cfg.Bucket,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			PublicURL: cfg.Blob.PublicURL,
		})
	default:
		dir := instance.BlobDir(p.Instance)
		logger.Info("blob backend fs", zap.String("dir", dir), zap.String("url", cfg.BlobURL()))
		return blob.NewFS(dir, cfg.BlobURL())
	}
}

func provideRPC(ds *docstore.Store, a *auth.Service, blobs remote.Blobs, m *metrics.Metrics, logger *zap.Logger) *rpc.Service {
	return rpc.NewService(ds, a, blobs, m, logger.Named("rpc"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, web *HTTPServer, svc *rpc.Service, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			srv.Start()
			web.Start()
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Live queries block GracefulStop until they end.
			svc.Close()
			srv.Stop(ctx)
			web.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
