package main

import (
	"errors"
	"os"

	"github.com/hibiken/asynq"

	"hypercast/internal/config"
	"hypercast/internal/log"
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
	log.Configure(log.Config{Level: cfg.LogLevel, Service: "hypercast-scheduler"})
	logger := log.WithComponent("scheduler")

	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{},
	)

	task, err := tasks.NewSweepTempTask()
	if err != nil {
		logger.Fatal().Err(err).Msg("could not create task")
	}

	// Run every hour
	if _, err := scheduler.Register("@every 1h", task); err != nil {
		logger.Fatal().Err(err).Msg("could not register task")
	}

	logger.Info().Str("commit", CommitSHA).Msg("Scheduler starting")
	if err := scheduler.Run(); err != nil {
		logger.Fatal().Err(err).Msg("could not run scheduler")
	}
}
