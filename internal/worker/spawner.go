package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"hypercast/internal/metrics"
)

// Spawner runs each submission in its own goroutine inside this process.
type Spawner struct {
	producer Producer
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// NewSpawner returns a Spawner. With concurrency > 0 at most that many jobs
// run at once and the rest wait inside their goroutines; submission itself
// never blocks.
func NewSpawner(producer Producer, concurrency int, logger zerolog.Logger) *Spawner {
	s := &Spawner{producer: producer, logger: logger}
	if concurrency > 0 {
		s.sem = semaphore.NewWeighted(int64(concurrency))
	}
	return s
}

// Submit starts the job and returns at once. The job outlives ctx's
// cancellation but keeps its values.
func (s *Spawner) Submit(ctx context.Context, content, sourceURL string) error {
	jobID := uuid.NewString()
	jobCtx := context.WithoutCancel(ctx)
	metrics.IncJob(metrics.OutcomeSubmitted)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			if err := s.sem.Acquire(jobCtx, 1); err != nil {
				s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to acquire job slot")
				return
			}
			defer s.sem.Release(1)
		}
		_ = runJob(jobCtx, s.producer, s.logger, jobID, content, sourceURL)
	}()

	s.logger.Info().Str("job_id", jobID).Msg("Episode job accepted")
	return nil
}

// Wait blocks until running jobs finish or ctx is done. It is meant for
// process shutdown only.
func (s *Spawner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
