package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vietddude/keypool/internal/admin"
	"github.com/vietddude/keypool/internal/audit"
	"github.com/vietddude/keypool/internal/core/config"
	"github.com/vietddude/keypool/internal/infra/api"
	redisclient "github.com/vietddude/keypool/internal/infra/redis"
	"github.com/vietddude/keypool/internal/infra/storage"
	"github.com/vietddude/keypool/internal/infra/storage/memory"
	"github.com/vietddude/keypool/internal/infra/storage/postgres"
	"github.com/vietddude/keypool/internal/metrics"
	"github.com/vietddude/keypool/internal/pool"
)

// App owns the credential pool and its supporting services.
type App struct {
	cfg         config.AppConfig
	pool        *pool.Pool[*api.Client]
	recorder    *audit.Recorder
	mirror      *redisclient.Mirror
	server      *admin.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg config.AppConfig) (*App, error) {
	if cfg.API.BaseURL == "" {
		return nil, errors.New("api.base_url is required")
	}

	a := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	// 1. Attempt audit storage
	var repo storage.AttemptRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		repo = postgres.NewAttemptRepo(db)
		a.log.Info("Using PostgreSQL attempt log")
	} else {
		repo = memory.NewAttemptRepo(memory.DefaultCapacity)
		a.log.Info("Using in-memory attempt log")
	}
	a.recorder = audit.NewRecorder(repo, cfg.Audit.Buffer)

	// 2. Credential pool
	a.pool = pool.New(
		api.Factory(cfg.API),
		pool.WithSettings(cfg.Pool.PoolSettings()),
		pool.WithObserver(pool.Observers(metrics.Observer{}, a.recorder)),
	)
	if err := a.pool.Initialize(cfg.Pool.Credentials); err != nil {
		a.closeStores()
		return nil, err
	}

	// 3. Snapshot mirror
	var store redisclient.SnapshotStore
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		store = client
	}
	a.mirror = redisclient.NewMirror(store, a.pool.Stats, cfg.Redis.SnapshotInterval, metrics.RecordStats)

	// 4. Admin server
	a.server = admin.NewServer(a.pool, a.Probe, cfg.Server.Port)

	return a, nil
}

// Pool returns the dispatcher.
func (a *App) Pool() *pool.Pool[*api.Client] {
	return a.pool
}

// Probe runs a GET of the configured probe path through the pool.
func (a *App) Probe(ctx context.Context) (json.RawMessage, error) {
	return pool.Execute(ctx, a.pool, "probe", func(ctx context.Context, c *api.Client) (json.RawMessage, error) {
		return c.Get(ctx, a.cfg.API.ProbePath)
	})
}

// Start launches the background services and the admin server.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.recorder.Run(runCtx)
	}()
	go func() {
		defer a.wg.Done()
		a.mirror.Run(runCtx)
	}()

	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Admin server failed", "error", err)
		}
	}()

	stats := a.pool.Stats()
	a.log.Info("Pool ready",
		"pool", stats.Name, "keys", stats.Total, "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts the admin server down and flushes the audit log.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping keypool...")

	err := a.server.Stop(ctx)

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if cerr := a.pool.Close(); cerr != nil {
		a.log.Warn("Failed to close clients", "error", cerr)
	}
	a.closeStores()
	return err
}

func (a *App) closeStores() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
