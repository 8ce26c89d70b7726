package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/deepscan-backend/internal/config"
	"github.com/sandeepkv93/deepscan-backend/internal/health"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

// BackgroundTask runs until ctx is cancelled.
type BackgroundTask func(ctx context.Context)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	tasks  []BackgroundTask
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	tasks []BackgroundTask,
) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		DB:                           db,
		Redis:                        redisClient,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
		tasks:                        tasks,
	}
}

// StartBackground launches the registered tasks. StopBackground cancels
// them and waits for them to return.
func (a *App) StartBackground(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	for _, task := range a.tasks {
		if task == nil {
			continue
		}
		a.wg.Add(1)
		go func(run BackgroundTask) {
			defer a.wg.Done()
			run(ctx)
		}(task)
	}
}

func (a *App) StopBackground() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
}

// Run serves HTTP and the background tasks until ctx is cancelled, then
// drains everything within the configured shutdown budget.
func (a *App) Run(ctx context.Context) error {
	a.StartBackground(ctx)
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
	case runErr = <-serveErr:
		a.Logger.Error("http server stopped", "error", runErr)
	}
	a.Shutdown(context.WithoutCancel(ctx))
	return runErr
}

// Shutdown stops the server first, then the background tasks, then flushes
// telemetry and closes the stores. Each stage gets its own slice of the
// total budget; failures are logged and the next stage still runs.
func (a *App) Shutdown(ctx context.Context) {
	total, cancel := context.WithTimeout(ctx, durationOr(a.ShutdownTimeout, 20*time.Second))
	defer cancel()

	stage := func(budget time.Duration, name string, stop func(context.Context) error) {
		stageCtx, stageCancel := context.WithTimeout(total, budget)
		defer stageCancel()
		if err := stop(stageCtx); err != nil {
			a.Logger.Error("shutdown stage failed", "stage", name, "error", err)
		}
	}

	if a.Server != nil {
		stage(durationOr(a.ShutdownHTTPDrainTimeout, 10*time.Second), "http", a.Server.Shutdown)
	}
	a.StopBackground()
	if a.Observability != nil {
		stage(durationOr(a.ShutdownObservabilityTimeout, 8*time.Second), "observability", a.Observability.Shutdown)
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("shutdown stage failed", "stage", "redis", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Logger.Error("shutdown stage failed", "stage", "database", "error", err)
			}
		}
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
