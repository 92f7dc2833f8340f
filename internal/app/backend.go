package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gubevu/invoicing/internal/documents"
	"github.com/gubevu/invoicing/internal/drafts"
	"github.com/gubevu/invoicing/internal/observability"
	"github.com/gubevu/invoicing/internal/platform/cache"
	"github.com/gubevu/invoicing/internal/platform/db"
	"github.com/gubevu/invoicing/internal/storage"
	"github.com/gubevu/invoicing/internal/users"
)

// Backend bundles the key-value stores and lock selected by STORAGE_DRIVER.
type Backend struct {
	Documents storage.Store
	Sessions  storage.Store
	Locker    storage.Locker
	closers   []func()
}

// OnClose registers fn to run when the backend is closed. Hooks run in
// reverse registration order.
func (b *Backend) OnClose(fn func()) {
	b.closers = append(b.closers, fn)
}

// Close releases backend connections.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// OpenBackend connects the configured storage driver.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	docOpts := storage.Options{Namespace: cfg.StorageNamespace, MaxValueBytes: cfg.StorageQuotaBytes}
	sessionOpts := storage.Options{
		Namespace:     cfg.StorageNamespace + ":session",
		MaxValueBytes: cfg.StorageQuotaBytes,
		TTL:           cfg.SessionTTL,
	}

	switch cfg.StorageDriver {
	case DriverRedis:
		client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, err
		}
		logger.Info("storage connected", slog.String("driver", DriverRedis), slog.String("addr", cfg.RedisAddr))
		b := &Backend{
			Documents: storage.NewRedisStore(client, docOpts),
			Sessions:  storage.NewRedisStore(client, sessionOpts),
			Locker:    storage.NewRedisLocker(client, 0),
		}
		b.OnClose(func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
		return b, nil
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, 0)
		if err != nil {
			return nil, err
		}
		docs := storage.NewPostgresStore(pool, docOpts)
		if err := docs.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("storage connected", slog.String("driver", DriverPostgres))
		b := &Backend{
			Documents: docs,
			Sessions:  storage.NewPostgresStore(pool, sessionOpts),
			Locker:    storage.NewLocalLocker(),
		}
		b.OnClose(pool.Close)
		return b, nil
	case DriverMemory, "":
		return &Backend{
			Documents: storage.NewMemoryStore(docOpts),
			Sessions:  storage.NewMemoryStore(sessionOpts),
			Locker:    storage.NewLocalLocker(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Services are the domain components built on a Backend.
type Services struct {
	Documents *documents.Store
	Users     *users.Service
	Drafts    *drafts.Manager
}

// NewServices wires the domain components. metrics may be nil.
func NewServices(b *Backend, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) *Services {
	storeCfg := documents.StoreConfig{
		Logger:  logger,
		Locker:  b.Locker,
		Observe: metrics.ObserveStoreOperation,
	}
	if cfg.DocumentNumbering {
		storeCfg.Sequencer = documents.NewSequencer(b.Documents)
	}
	docs := documents.NewStore(b.Documents, storeCfg)
	return &Services{
		Documents: docs,
		Users:     users.NewService(b.Documents),
		Drafts:    drafts.NewManager(b.Sessions, docs, logger),
	}
}
