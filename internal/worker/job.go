// Package worker runs episode jobs off the request path, either in-process or
// through the asynq queue.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"hypercast/internal/log"
	"hypercast/internal/metrics"
)

// Producer runs one episode job to completion.
type Producer interface {
	Produce(ctx context.Context, content, sourceURL string) error
}

// Runner accepts submissions for background processing. A nil error means
// only that the submission was accepted.
type Runner interface {
	Submit(ctx context.Context, content, sourceURL string) error
}

// runJob is the job boundary: it records the outcome, and converts a panic
// into an error so it never reaches the caller's goroutine.
func runJob(ctx context.Context, producer Producer, logger zerolog.Logger, jobID, content, sourceURL string) (err error) {
	ctx = log.ContextWithJobID(ctx, jobID)
	logger = log.WithContext(ctx, logger)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
			metrics.IncJob(metrics.OutcomePanicked)
			logger.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("Episode job panicked")
			return
		}
		metrics.JobDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.IncJob(metrics.OutcomeFailed)
			logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Episode job failed")
			return
		}
		metrics.IncJob(metrics.OutcomeSucceeded)
		logger.Info().Dur("elapsed", time.Since(start)).Msg("Episode job finished")
	}()

	logger.Info().Bool("from_url", sourceURL != "").Msg("Episode job started")
	return producer.Produce(ctx, content, sourceURL)
}
