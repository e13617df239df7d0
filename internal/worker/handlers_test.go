package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypercast/internal/log"
	"hypercast/internal/storage"
	"hypercast/internal/test"
	"hypercast/pkg/tasks"
)

type call struct {
	content   string
	sourceURL string
	jobID     string
}

type mockProducer struct {
	mu    sync.Mutex
	calls []call
	err   error
	panic bool
	done  chan struct{}
	block chan struct{}
}

func (m *mockProducer) Produce(ctx context.Context, content, sourceURL string) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.calls = append(m.calls, call{content: content, sourceURL: sourceURL, jobID: log.JobIDFromContext(ctx)})
	m.mu.Unlock()
	if m.done != nil {
		defer func() { m.done <- struct{}{} }()
	}
	if m.panic {
		panic("nil map write")
	}
	return m.err
}

func (m *mockProducer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockSweeper struct {
	removed int
	err     error
	calls   int
}

func (m *mockSweeper) Sweep() (int, error) {
	m.calls++
	return m.removed, m.err
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleProduceEpisodeTask(t *testing.T) {
	producer := &mockProducer{}
	handler := NewTaskHandler(producer, &mockSweeper{}, zerolog.Nop())
	payload := tasks.ProduceEpisodeTaskPayload{JobID: "job-1", Content: "Hello world."}
	task := asynq.NewTask(tasks.TypeProduceEpisode, mustMarshal(t, payload))

	err := handler.HandleProduceEpisodeTask(context.Background(), task)

	assert.NoError(t, err)
	require.Len(t, producer.calls, 1)
	assert.Equal(t, "Hello world.", producer.calls[0].content)
	assert.Empty(t, producer.calls[0].sourceURL)
	assert.Equal(t, "job-1", producer.calls[0].jobID)
}

func TestHandleProduceEpisodeTaskSwallowsJobFailure(t *testing.T) {
	handler := NewTaskHandler(&mockProducer{err: errors.New("tts down")}, &mockSweeper{}, zerolog.Nop())
	task := asynq.NewTask(tasks.TypeProduceEpisode, mustMarshal(t, tasks.ProduceEpisodeTaskPayload{Content: "x"}))

	assert.NoError(t, handler.HandleProduceEpisodeTask(context.Background(), task))
}

func TestHandleProduceEpisodeTaskRecoversPanic(t *testing.T) {
	handler := NewTaskHandler(&mockProducer{panic: true}, &mockSweeper{}, zerolog.Nop())
	task := asynq.NewTask(tasks.TypeProduceEpisode, mustMarshal(t, tasks.ProduceEpisodeTaskPayload{Content: "x"}))

	assert.NotPanics(t, func() {
		assert.NoError(t, handler.HandleProduceEpisodeTask(context.Background(), task))
	})
}

func TestHandleProduceEpisodeTaskBadPayload(t *testing.T) {
	handler := NewTaskHandler(&mockProducer{}, &mockSweeper{}, zerolog.Nop())
	task := asynq.NewTask(tasks.TypeProduceEpisode, []byte("{not json"))

	err := handler.HandleProduceEpisodeTask(context.Background(), task)

	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSweepTempTask(t *testing.T) {
	sweeper := &mockSweeper{removed: 3}
	handler := NewTaskHandler(&mockProducer{}, sweeper, zerolog.Nop())

	assert.NoError(t, handler.HandleSweepTempTask(context.Background(), asynq.NewTask(tasks.TypeSweepTemp, nil)))
	assert.Equal(t, 1, sweeper.calls)
}

func TestHandleSweepTempTaskLocked(t *testing.T) {
	handler := NewTaskHandler(&mockProducer{}, &mockSweeper{err: storage.ErrSweepLocked}, zerolog.Nop())

	assert.NoError(t, handler.HandleSweepTempTask(context.Background(), asynq.NewTask(tasks.TypeSweepTemp, nil)))
}

func TestHandleSweepTempTaskError(t *testing.T) {
	handler := NewTaskHandler(&mockProducer{}, &mockSweeper{err: errors.New("permission denied")}, zerolog.Nop())

	assert.Error(t, handler.HandleSweepTempTask(context.Background(), asynq.NewTask(tasks.TypeSweepTemp, nil)))
}

func TestSpawnerSubmitReturnsBeforeJobRuns(t *testing.T) {
	producer := &mockProducer{block: make(chan struct{}), done: make(chan struct{}, 1)}
	s := NewSpawner(producer, 0, zerolog.Nop())

	require.NoError(t, s.Submit(context.Background(), "Hello world.", ""))
	assert.Zero(t, producer.count())

	close(producer.block)
	select {
	case <-producer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
	require.NoError(t, s.Wait(context.Background()))
	require.Equal(t, 1, producer.count())
	assert.NotEmpty(t, producer.calls[0].jobID)
}

func TestSpawnerJobOutlivesRequestContext(t *testing.T) {
	producer := &mockProducer{}
	s := NewSpawner(producer, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Submit(ctx, "a", ""))
	cancel()

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, 1, producer.count())
}

func TestSpawnerSurvivesPanicsAndFailures(t *testing.T) {
	s := NewSpawner(&mockProducer{panic: true}, 2, zerolog.Nop())
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Submit(context.Background(), "x", ""))
	}
	require.NoError(t, s.Wait(context.Background()))

	failing := NewSpawner(&mockProducer{err: errors.New("boom")}, 0, zerolog.Nop())
	require.NoError(t, failing.Submit(context.Background(), "x", ""))
	require.NoError(t, failing.Wait(context.Background()))
}

func TestSpawnerWaitHonoursContext(t *testing.T) {
	producer := &mockProducer{block: make(chan struct{})}
	defer close(producer.block)
	s := NewSpawner(producer, 0, zerolog.Nop())
	require.NoError(t, s.Submit(context.Background(), "x", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestQueueRunnerSubmit(t *testing.T) {
	enqueuer := &test.MockTaskEnqueuer{}
	q := NewQueueRunner(enqueuer, zerolog.Nop())

	err := q.Submit(context.Background(), "<html>", "https://example.com/a")

	require.NoError(t, err)
	require.Len(t, enqueuer.EnqueuedTasks, 1)
	task := enqueuer.EnqueuedTasks[0]
	assert.Equal(t, tasks.TypeProduceEpisode, task.Type())

	var payload tasks.ProduceEpisodeTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "<html>", payload.Content)
	assert.Equal(t, "https://example.com/a", payload.SourceURL)
	assert.NotEmpty(t, payload.JobID)
}

func TestQueueRunnerSubmitError(t *testing.T) {
	q := NewQueueRunner(&test.MockTaskEnqueuer{Err: errors.New("redis: connection refused")}, zerolog.Nop())

	assert.Error(t, q.Submit(context.Background(), "x", ""))
}
