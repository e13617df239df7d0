package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"hypercast/internal/storage"
	"hypercast/pkg/tasks"
)

// Sweeper removes stale scratch files.
type Sweeper interface {
	Sweep() (int, error)
}

type TaskHandler struct {
	producer Producer
	sweeper  Sweeper
	logger   zerolog.Logger
}

func NewTaskHandler(producer Producer, sweeper Sweeper, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{producer: producer, sweeper: sweeper, logger: logger}
}

// HandleProduceEpisodeTask runs one queued episode job. Job failures are
// logged and counted here; they are not handed back to asynq.
func (h *TaskHandler) HandleProduceEpisodeTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ProduceEpisodeTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	_ = runJob(ctx, h.producer, h.logger, p.JobID, p.Content, p.SourceURL)
	return nil
}

func (h *TaskHandler) HandleSweepTempTask(ctx context.Context, t *asynq.Task) error {
	removed, err := h.sweeper.Sweep()
	if errors.Is(err, storage.ErrSweepLocked) {
		h.logger.Info().Msg("Tmp sweep already running elsewhere, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to sweep tmp directory: %w", err)
	}
	h.logger.Debug().Int("removed", removed).Msg("Finished tmp sweep")
	return nil
}
