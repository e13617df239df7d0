package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeProduceEpisode = "episode:produce"
	TypeSweepTemp      = "tmp:sweep"
)

type ProduceEpisodeTaskPayload struct {
	JobID     string
	Content   string
	SourceURL string
}

func NewProduceEpisodeTask(jobID, content, sourceURL string) (*asynq.Task, error) {
	payload, err := json.Marshal(ProduceEpisodeTaskPayload{
		JobID:     jobID,
		Content:   content,
		SourceURL: sourceURL,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProduceEpisode, payload, asynq.MaxRetry(0)), nil
}

func NewSweepTempTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSweepTemp, nil), nil
}
