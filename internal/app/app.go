package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/yungbote/skooly-backend/internal/data/db"
	"github.com/yungbote/skooly-backend/internal/http"
	"github.com/yungbote/skooly-backend/internal/observability"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

const (
	shutdownTimeout    = 20 * time.Second
	queueSampleEvery   = 15 * time.Second
	workerDrainTimeout = 30 * time.Second
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Modules  Modules
	Services Services
	Metrics  *observability.Metrics

	server       *http.Server
	dbService    *db.Service
	otelShutdown func(context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New loads .env, configuration and every dependency. Nothing runs until
// Start or Run.
func New(ctx context.Context) (*App, error) {
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init(cfg.MetricsEnabled)
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	dbs, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbs.DB()

	fail := func(err error, clients *Clients) (*App, error) {
		clients.Close()
		_ = dbs.Close()
		_ = otelShutdown(context.Background())
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		return fail(err, nil)
	}

	mods, err := wireModules(ctx, log, cfg, theDB, dbs.Driver(), reposet, clients)
	if err != nil {
		return fail(err, &clients)
	}

	serviceset, err := wireServices(log, cfg, reposet, clients, mods)
	if err != nil {
		return fail(err, &clients)
	}

	handlerset := wireHandlers(log, cfg, serviceset, mods.Validator, metrics)
	middleware := wireMiddleware(log, cfg)
	server := http.NewServer(cfg.Address(), routerConfig(log, cfg, handlerset, middleware, metrics))

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Modules:      mods,
		Services:     serviceset,
		Metrics:      metrics,
		server:       server,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}, nil
}

// Start rebuilds an in-memory index from persisted chunks and launches the
// job worker and queue sampler. It is idempotent.
func (a *App) Start(ctx context.Context) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Modules.Index.ephemeral && a.Modules.Store != nil {
		n, err := a.Modules.Store.Warm(ctx)
		if err != nil {
			a.Log.Warn("Vector index warm-up incomplete", "loaded", n, "error", err)
		} else {
			a.Log.Info("Vector index warmed from chunk table", "vectors", n)
		}
	}

	if a.Services.JobWorker != nil {
		a.Services.JobWorker.Start(ctx)
	}
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB, queueSampleEvery)
}

// Run serves HTTP until ctx is done or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Address())
		errCh <- a.server.Run()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Log.Info("Shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			a.Log.Error("HTTP server failed", "error", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("HTTP shutdown incomplete", "error", err)
	}
	a.Close()
	return runErr
}

// Close stops background work and releases clients. Safe to call twice.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		if a.Services.JobWorker != nil {
			done := make(chan struct{})
			go func() {
				a.Services.JobWorker.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(workerDrainTimeout):
				a.Log.Warn("Job workers did not drain before timeout")
			}
		}
	}

	if a.otelShutdown != nil {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Tracer shutdown failed", "error", err)
		}
		done()
		a.otelShutdown = nil
	}
	a.Clients.Close()
	a.Clients = Clients{}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
		a.dbService = nil
	}
	a.Log.Sync()
}
