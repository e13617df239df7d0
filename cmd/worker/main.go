package main

import (
	"errors"
	"os"

	"github.com/hibiken/asynq"

	"hypercast/internal/app"
	"hypercast/internal/config"
	"hypercast/internal/log"
	"hypercast/internal/worker"
	"hypercast/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		base := log.Base()
		base.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "hypercast-worker"})
	logger := log.WithComponent("worker")

	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	components, err := app.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialise storage")
	}
	defer components.Close()

	concurrency := cfg.JobConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(components.Producer(cfg), components.Sweeper, log.WithComponent("tasks"))

	mux.HandleFunc(tasks.TypeProduceEpisode, taskHandler.HandleProduceEpisodeTask)
	mux.HandleFunc(tasks.TypeSweepTemp, taskHandler.HandleSweepTempTask)

	logger.Info().Str("commit", CommitSHA).Str("redis", redisAddr).Int("concurrency", concurrency).Msg("Worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("could not run server")
	}
}
