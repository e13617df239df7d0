package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"hypercast/internal/models"
)

// EpisodeRepository is the durable, append-only store of produced episodes.
type EpisodeRepository struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

func NewEpisodeRepository(db *sqlx.DB, logger zerolog.Logger) *EpisodeRepository {
	return &EpisodeRepository{db: db, logger: logger}
}

// Add inserts one episode in a single statement.
func (r *EpisodeRepository) Add(ctx context.Context, episode models.Episode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO episodes (filename, title, description, pub_date, duration)
		VALUES (?, ?, ?, ?, ?)`,
		episode.Filename, episode.Title, episode.Description, episode.PubDate, episode.Duration)
	if err != nil {
		r.logger.Error().Err(err).Str("filename", episode.Filename).Msg("Error adding episode")
		return fmt.Errorf("failed to add episode: %w", err)
	}
	r.logger.Info().Str("title", episode.Title).Str("filename", episode.Filename).Msg("Added episode")
	return nil
}

// ListRecent returns every episode, newest first. Read failures are logged
// and yield an empty list so page and feed rendering keep working.
func (r *EpisodeRepository) ListRecent(ctx context.Context) []models.Episode {
	query := `
		SELECT id, filename, title, description, pub_date, duration, created_at
		FROM episodes
		ORDER BY created_at DESC, id DESC
	`
	episodes := []models.Episode{}
	if err := r.db.SelectContext(ctx, &episodes, query); err != nil {
		r.logger.Error().Err(err).Msg("Error retrieving episodes")
		return []models.Episode{}
	}
	return episodes
}
