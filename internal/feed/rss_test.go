package feed

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypercast/internal/models"
)

type staticLister []models.Episode

func (s staticLister) ListRecent(context.Context) []models.Episode { return s }

type rssDoc struct {
	Channel struct {
		Title       string `xml:"title"`
		Link        string `xml:"link"`
		Description string `xml:"description"`
		Language    string `xml:"language"`
		Image       struct {
			URL string `xml:"url"`
		} `xml:"image"`
		Items []struct {
			Title       string `xml:"title"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
			Duration    string `xml:"duration"`
			Enclosure   struct {
				URL    string `xml:"url,attr"`
				Type   string `xml:"type,attr"`
				Length string `xml:"length,attr"`
			} `xml:"enclosure"`
		} `xml:"item"`
	} `xml:"channel"`
}

func strPtr(s string) *string { return &s }

func testChannel() Channel {
	return Channel{
		BaseURL:     "https://pod.example.com/",
		Title:       "Hypercast",
		Description: "Articles read aloud",
		Image:       "cover.png",
		Language:    "en-us",
	}
}

func TestRender(t *testing.T) {
	audioDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "newer.mp3"), []byte("12345"), 0o644))
	episodes := staticLister{
		{
			ID: 2, Filename: "newer.mp3", Title: "Newer", Description: "Second & latest",
			PubDate: "Tue, 05 Mar 2024 13:30:00 GMT", Duration: strPtr("00:03:10"),
			CreatedAt: time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC),
		},
		{
			ID: 1, Filename: "older.mp3", Title: "Older", Description: "First",
			PubDate: "Mon, 04 Mar 2024 09:00:00 GMT",
		},
	}
	p := NewProjector(episodes, testChannel(), audioDir, zerolog.Nop())

	out, err := p.Render(context.Background())

	require.NoError(t, err)
	raw := string(out)
	assert.True(t, strings.HasPrefix(raw, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, raw, `xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"`)
	assert.Contains(t, raw, "\n  <channel>")

	var doc rssDoc
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, "Hypercast", doc.Channel.Title)
	assert.Equal(t, "https://pod.example.com/feed", doc.Channel.Link)
	assert.Equal(t, "en-us", doc.Channel.Language)
	assert.Equal(t, "https://pod.example.com/static/images/cover.png", doc.Channel.Image.URL)

	require.Len(t, doc.Channel.Items, 2)
	first := doc.Channel.Items[0]
	assert.Equal(t, "Newer", first.Title)
	assert.Equal(t, "Second & latest", first.Description)
	assert.Equal(t, "Tue, 05 Mar 2024 13:30:00 GMT", first.PubDate)
	assert.Equal(t, "00:03:10", first.Duration)
	assert.Equal(t, "https://pod.example.com/static/audio/newer.mp3", first.Enclosure.URL)
	assert.Equal(t, "audio/mpeg", first.Enclosure.Type)
	assert.Equal(t, "5", first.Enclosure.Length)

	second := doc.Channel.Items[1]
	assert.Equal(t, "Older", second.Title)
	assert.Equal(t, "Mon, 04 Mar 2024 09:00:00 GMT", second.PubDate)
	assert.Equal(t, models.DefaultDuration, second.Duration)
	assert.Equal(t, "0", second.Enclosure.Length)
}

func TestRenderEmpty(t *testing.T) {
	p := NewProjector(staticLister{}, testChannel(), t.TempDir(), zerolog.Nop())

	out, err := p.Render(context.Background())

	require.NoError(t, err)
	var doc rssDoc
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, "Hypercast", doc.Channel.Title)
	assert.Empty(t, doc.Channel.Items)
}

func TestRenderFallsBackToTitleForEmptyDescription(t *testing.T) {
	p := NewProjector(staticLister{{Filename: "a.mp3", Title: "Only Title"}}, testChannel(), t.TempDir(), zerolog.Nop())

	out, err := p.Render(context.Background())

	require.NoError(t, err)
	var doc rssDoc
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Channel.Items, 1)
	assert.Equal(t, "Only Title", doc.Channel.Items[0].Description)
}

func TestRenderRejectsUntitledEpisode(t *testing.T) {
	p := NewProjector(staticLister{{Filename: "a.mp3", Description: "d"}}, testChannel(), t.TempDir(), zerolog.Nop())

	_, err := p.Render(context.Background())

	assert.Error(t, err)
}

func TestRenderKeepsStoredPubDate(t *testing.T) {
	episodes := staticLister{
		{Filename: "a.mp3", Title: "A", PubDate: "Sun, 01 Jan 2023 08:00:00 GMT"},
		{Filename: "b.mp3", Title: "B", PubDate: "not a date"},
	}
	p := NewProjector(episodes, testChannel(), t.TempDir(), zerolog.Nop())
	p.now = func() time.Time { return time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC) }

	out, err := p.Render(context.Background())

	require.NoError(t, err)
	var doc rssDoc
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Channel.Items, 2)
	assert.Equal(t, "Sun, 01 Jan 2023 08:00:00 GMT", doc.Channel.Items[0].PubDate)
	assert.Equal(t, "not a date", doc.Channel.Items[1].PubDate)
}
