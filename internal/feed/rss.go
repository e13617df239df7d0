package feed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"github.com/rs/zerolog"

	"hypercast/internal/models"
)

// EpisodeLister yields episodes newest first.
type EpisodeLister interface {
	ListRecent(ctx context.Context) []models.Episode
}

// Channel describes the podcast as a whole.
type Channel struct {
	BaseURL     string
	Title       string
	Description string
	Image       string
	Language    string
}

// Projector renders the stored episodes as a podcast RSS document.
type Projector struct {
	episodes EpisodeLister
	channel  Channel
	audioDir string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewProjector(episodes EpisodeLister, channel Channel, audioDir string, logger zerolog.Logger) *Projector {
	channel.BaseURL = strings.TrimRight(channel.BaseURL, "/")
	return &Projector{
		episodes: episodes,
		channel:  channel,
		audioDir: audioDir,
		logger:   logger,
		now:      time.Now,
	}
}

// FeedURL is the public address of the feed.
func (p *Projector) FeedURL() string {
	return p.channel.BaseURL + "/feed"
}

// AudioURL is the public address of an episode file.
func (p *Projector) AudioURL(filename string) string {
	return fmt.Sprintf("%s/static/audio/%s", p.channel.BaseURL, filename)
}

// Render builds the feed document, one item per episode in repository order.
func (p *Projector) Render(ctx context.Context) ([]byte, error) {
	episodes := p.episodes.ListRecent(ctx)

	built := p.now()
	published := built
	if len(episodes) > 0 && !episodes[0].CreatedAt.IsZero() {
		published = episodes[0].CreatedAt
	}

	feed := podcast.New(p.channel.Title, p.FeedURL(), p.channel.Description, &published, &built)
	feed.Language = p.channel.Language
	if p.channel.Image != "" {
		feed.AddImage(fmt.Sprintf("%s/static/images/%s", p.channel.BaseURL, p.channel.Image))
	}

	for _, episode := range episodes {
		description := episode.Description
		if description == "" {
			description = episode.Title
		}
		item := podcast.Item{
			Title:       episode.Title,
			Description: description,
			IDuration:   episode.DurationOrDefault(),
		}
		if published, err := time.Parse(models.PubDateLayout, episode.PubDate); err == nil {
			item.AddPubDate(&published)
		}
		item.AddEnclosure(p.AudioURL(episode.Filename), podcast.MP3, p.fileSize(episode.Filename))
		n, err := feed.AddItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to add feed item %q: %w", episode.Filename, err)
		}
		// AddItem reformats the date; the stored pub_date is published verbatim.
		feed.Items[n-1].PubDateFormatted = episode.PubDate
	}

	var buf bytes.Buffer
	if err := feed.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Projector) fileSize(filename string) int64 {
	info, err := os.Stat(filepath.Join(p.audioDir, filename))
	if err != nil {
		p.logger.Warn().Err(err).Str("filename", filename).Msg("Episode audio missing, advertising zero length")
		return 0
	}
	return info.Size()
}
