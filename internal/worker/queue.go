package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hypercast/internal/metrics"
	"hypercast/pkg/tasks"
)

// QueueRunner hands submissions to asynq for a separate worker process.
type QueueRunner struct {
	client tasks.TaskEnqueuer
	logger zerolog.Logger
}

func NewQueueRunner(client tasks.TaskEnqueuer, logger zerolog.Logger) *QueueRunner {
	return &QueueRunner{client: client, logger: logger}
}

// Submit enqueues an episode:produce task. The task is never retried.
func (q *QueueRunner) Submit(ctx context.Context, content, sourceURL string) error {
	jobID := uuid.NewString()
	task, err := tasks.NewProduceEpisodeTask(jobID, content, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to create produce task: %w", err)
	}

	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue produce task: %w", err)
	}
	metrics.IncJob(metrics.OutcomeSubmitted)
	q.logger.Info().Str("job_id", jobID).Str("task_id", info.ID).Str("queue", info.Queue).Msg("Episode job enqueued")
	return nil
}
