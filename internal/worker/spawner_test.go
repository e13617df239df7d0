package worker

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypercast/internal/pipeline"
	"hypercast/internal/storage"
)

type crashingTTS struct{}

func (crashingTTS) Synthesize(_ context.Context, text string, _ io.Writer) error {
	var cache map[string]int
	cache[text]++
	return nil
}

type noopEncoder struct{}

func (noopEncoder) Concat(context.Context, []string, string) error {
	return errors.New("encoder must not run")
}

type noopProber struct{}

func (noopProber) Duration(context.Context, string) (time.Duration, error) { return 0, nil }

type pipelineProducer struct {
	pipe *pipeline.Pipeline
	errs chan error
}

func (p *pipelineProducer) Produce(ctx context.Context, content, _ string) error {
	_, err := p.pipe.Run(ctx, content, "episode")
	p.errs <- err
	return err
}

func TestSpawnerSurvivesPanicInSegmentSynthesis(t *testing.T) {
	layout := storage.NewLayout(filepath.Join(t.TempDir(), "audio"))
	require.NoError(t, layout.EnsureDirs())
	pipe := pipeline.New(crashingTTS{}, noopEncoder{}, noopProber{}, layout,
		pipeline.Config{SegmentLength: 5, Concurrency: 3}, zerolog.Nop())
	producer := &pipelineProducer{pipe: pipe, errs: make(chan error, 1)}

	s := NewSpawner(producer, 1, zerolog.Nop())
	require.NoError(t, s.Submit(context.Background(), "alpha beta gamma delta", ""))
	require.NoError(t, s.Wait(context.Background()))

	err := <-producer.errs
	var segErr *pipeline.SegmentError
	require.ErrorAs(t, err, &segErr)
	assert.Contains(t, err.Error(), "panicked")
}
