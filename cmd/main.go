package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/trophycase/internal/adapters/broadcast"
	"github.com/okian/trophycase/internal/adapters/http/api"
	"github.com/okian/trophycase/internal/adapters/http/overlay"
	"github.com/okian/trophycase/internal/adapters/http/swagger"
	"github.com/okian/trophycase/internal/adapters/iconcache"
	app "github.com/okian/trophycase/internal/app"
	"github.com/okian/trophycase/internal/config"
	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/pkg/logger"
	"github.com/okian/trophycase/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	redisPingTimeout          = 3 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "trophycase stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc := newService(cfg, log)

	hub := overlay.NewHub(svc.Display().Current, log.Named("overlay"))
	go hub.Run(ctx)
	svc.Subscribe(hub)

	if cfg.RedisAddr != "" {
		b, err := newBroadcaster(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := b.Close(); err != nil {
				log.Warn(ctx, "closing broadcaster", logger.Error(err))
			}
		}()
		svc.Subscribe(b)
	}

	// Workers drain on shutdown, so they outlive the signal context.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc, hub),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Close(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return runErr
}

// newService builds the feed service from cfg.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	icons := iconcache.New(
		iconcache.WithDir(cfg.IconCacheDir),
		iconcache.WithConcurrency(cfg.IconFetchConcurrency),
		iconcache.WithTimeout(cfg.IconFetchTimeout()),
		iconcache.WithLogger(log.Named("iconcache")),
	)

	return app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithTickInterval(cfg.TickInterval()),
		app.WithBaseGamerscore(cfg.BaseGamerscore),
		app.WithIconPrefetcher(icons),
		app.WithDisplayOptions(
			display.WithLastUnlockedDuration(cfg.LastUnlockedDuration()),
			display.WithLockedDuration(cfg.LockedDuration()),
			display.WithRotationDuration(cfg.RotationDuration()),
			display.WithMaxSubscribers(cfg.MaxSubscribers),
		),
	)
}

// newBroadcaster connects to redis. An unreachable server is logged, not
// fatal; publications are retried on every display change.
func newBroadcaster(ctx context.Context, cfg *config.Config, log logger.Logger) (*broadcast.Broadcaster, error) {
	b, err := broadcast.New(&redis.Options{Addr: cfg.RedisAddr}, cfg.RedisChannelPrefix, log.Named("broadcast"))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := b.Ping(pingCtx); err != nil {
		log.Warn(ctx, "redis unreachable", logger.String("addr", cfg.RedisAddr), logger.Error(err))
	}
	return b, nil
}

// newHandler registers every route and applies CORS.
func newHandler(cfg *config.Config, svc *app.Service, hub *overlay.Hub) http.Handler {
	mux := http.NewServeMux()

	swagger.Register(mux)
	api.NewServer(svc).Register(mux)
	overlay.Register(mux, hub)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", api.MessageIDHeader},
	})
	return c.Handler(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if subscribers, ok := stats["subscribers"].(int); ok {
		metrics.UpdateDisplaySubscribers(subscribers)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
