// Package producer runs one episode job from submitted content to a stored
// episode.
package producer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"hypercast/internal/log"
	"hypercast/internal/models"
	"hypercast/internal/normalize"
	"hypercast/internal/pipeline"
)

type Normalizer interface {
	Normalize(ctx context.Context, content, sourceURL string) (normalize.Result, error)
}

type Synthesis interface {
	Run(ctx context.Context, text, base string) (pipeline.Result, error)
}

type EpisodeStore interface {
	Add(ctx context.Context, episode models.Episode) error
}

// Producer chains normalization, synthesis and persistence for one submission.
type Producer struct {
	normalizer Normalizer
	synthesis  Synthesis
	store      EpisodeStore
	timeout    time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// New builds a Producer. A zero timeout lets a job run without a deadline.
func New(normalizer Normalizer, synthesis Synthesis, store EpisodeStore, timeout time.Duration, logger zerolog.Logger) *Producer {
	return &Producer{
		normalizer: normalizer,
		synthesis:  synthesis,
		store:      store,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

// Produce turns content into a published episode. Nothing is persisted and
// no audio file is left behind when it returns an error.
func (p *Producer) Produce(ctx context.Context, content, sourceURL string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	logger := log.WithContext(ctx, p.logger)

	normalized, err := p.normalizer.Normalize(ctx, content, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to normalize content: %w", err)
	}
	logger.Info().Str("title", normalized.Title).Int("chars", len([]rune(normalized.Text))).Msg("Normalized content")

	out, err := p.synthesis.Run(ctx, normalized.Text, pipeline.SanitizeBase(normalized.Title))
	if err != nil {
		return fmt.Errorf("failed to synthesize episode: %w", err)
	}

	duration := out.Duration
	episode := models.Episode{
		Filename:    out.Filename,
		Title:       normalized.Title,
		Description: normalized.Description,
		PubDate:     models.FormatPubDate(p.now()),
		Duration:    &duration,
	}
	if err := p.store.Add(ctx, episode); err != nil {
		if rmErr := os.Remove(out.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn().Err(rmErr).Str("path", out.Path).Msg("Failed to remove unrecorded episode audio")
		}
		return err
	}

	logger.Info().Str("filename", out.Filename).Str("duration", duration).Msg("Episode published")
	return nil
}
