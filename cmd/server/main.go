package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"hypercast/internal/app"
	"hypercast/internal/config"
	"hypercast/internal/content"
	"hypercast/internal/feed"
	"hypercast/internal/handlers"
	"hypercast/internal/log"
	"hypercast/internal/middleware"
	"hypercast/internal/storage"
	"hypercast/internal/worker"
	"hypercast/web"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const (
	fetchTimeout    = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		base := log.Base()
		base.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "hypercast-server"})
	logger := log.WithComponent("server")

	if err := cfg.RequireAPIToken(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	components, err := app.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise storage")
	}
	defer components.Close()

	if _, err := components.Sweeper.Sweep(); err != nil && !errors.Is(err, storage.ErrSweepLocked) {
		logger.Warn().Err(err).Msg("Startup tmp sweep failed")
	}

	runner, stopRunner := newRunner(cfg, components)
	defer stopRunner()

	templates, err := web.Templates()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse templates")
	}

	projector := feed.NewProjector(components.Episodes, feed.Channel{
		BaseURL:     cfg.BaseURL,
		Title:       cfg.FeedTitle,
		Description: cfg.FeedDescription,
		Image:       cfg.FeedImage,
		Language:    cfg.FeedLanguage,
	}, components.Layout.AudioDir, log.WithComponent("feed"))

	h := handlers.New(handlers.Options{
		Templates: templates,
		Validator: content.NewAcquirer(&http.Client{Timeout: fetchTimeout}, cfg.MaxURLLength, cfg.MaxInputSize, log.WithComponent("content")),
		Runner:    runner,
		Episodes:  components.Episodes,
		Feed:      projector,
		Site: handlers.Site{
			Title:       cfg.FeedTitle,
			Description: cfg.FeedDescription,
			Image:       cfg.FeedImage,
		},
		MaxRequestSize: cfg.MaxRequestSize,
		Logger:         log.WithComponent("handlers"),
	})

	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(cfg.RateLimit), cfg.RateBurst, cfg.TrustProxy, log.WithComponent("ratelimit"))
	router := handlers.NewRouter(h, handlers.RouterOptions{
		Auth:      middleware.APIKeyAuth(cfg.APIToken, log.WithComponent("auth")),
		RateLimit: limiter.Middleware,
		StaticDir: cfg.StaticDir,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("commit", CommitSHA).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case err := <-serverErrChan:
		logger.Error().Err(err).Msg("HTTP server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server stopped")
	}

	if spawner, ok := runner.(*worker.Spawner); ok {
		if err := spawner.Wait(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Episode jobs still running at shutdown")
		}
	}
	logger.Info().Msg("Shutdown complete")
}

// newRunner picks the asynq queue when Redis is configured, otherwise runs
// jobs in-process.
func newRunner(cfg *config.AppConfig, components *app.Components) (worker.Runner, func()) {
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		return worker.NewQueueRunner(client, log.WithComponent("queue")), func() { client.Close() }
	}
	spawner := worker.NewSpawner(components.Producer(cfg), cfg.JobConcurrency, log.WithComponent("jobs"))
	return spawner, func() {}
}
