package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is the part of asynq.Client the episode runner and scheduler
// use. Tests substitute a recording mock.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
