// Package app assembles the components shared by the server, the queue
// worker and the CLI from one configuration.
package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"hypercast/internal/ai"
	"hypercast/internal/audio"
	"hypercast/internal/config"
	"hypercast/internal/db"
	"hypercast/internal/log"
	"hypercast/internal/normalize"
	"hypercast/internal/pipeline"
	"hypercast/internal/producer"
	"hypercast/internal/storage"
)

// Components are the long-lived objects owned by a process.
type Components struct {
	DB       *sqlx.DB
	Episodes *db.EpisodeRepository
	Layout   storage.Layout
	Sweeper  *storage.Sweeper
}

// Open connects the episode store, applies migrations and prepares the audio
// directories.
func Open(cfg *config.AppConfig) (*Components, error) {
	conn, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	layout := storage.NewLayout(cfg.AudioDir())
	if err := layout.EnsureDirs(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare audio directories: %w", err)
	}

	return &Components{
		DB:       conn,
		Episodes: db.NewEpisodeRepository(conn, log.WithComponent("episodes")),
		Layout:   layout,
		Sweeper:  storage.NewSweeper(layout, cfg.LockPath(), cfg.TmpMaxAge, log.WithComponent("sweeper")),
	}, nil
}

// Producer builds the episode job from normalizer, pipeline and store.
func (c *Components) Producer(cfg *config.AppConfig) *producer.Producer {
	client := ai.NewClient(ai.Config{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		CleanupModel: cfg.CleanupModel,
		TitleModel:   cfg.TitleModel,
		TTSModel:     cfg.TTSModel,
		TTSVoice:     cfg.TTSVoice,
		TTSSpeed:     cfg.TTSSpeed,
		AudioFormat:  cfg.AudioFormat,
	})
	ffmpeg := audio.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath, cfg.AudioBitrate, log.WithComponent("ffmpeg"))

	normalizer := normalize.NewNormalizer(client, cfg.MaxContentInflation, log.WithComponent("normalizer"))
	pipe := pipeline.New(client, ffmpeg, ffmpeg, c.Layout, pipeline.Config{
		SegmentLength: cfg.SegmentLength,
		Concurrency:   cfg.TTSConcurrency,
		IntroPath:     cfg.IntroSound,
		Extension:     cfg.AudioFormat,
	}, log.WithComponent("pipeline"))

	return producer.New(normalizer, pipe, c.Episodes, cfg.JobTimeout, log.WithComponent("producer"))
}

func (c *Components) Close() error {
	return c.DB.Close()
}
