package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hypercast/internal/content"
	"hypercast/internal/models"
	"hypercast/internal/worker"
)

// HomeDateLayout is how publish dates appear on the home page.
const HomeDateLayout = "Mon, Jan 02, 2006 03:04 PM"

type Validator interface {
	Validate(ctx context.Context, raw string) (content.Input, error)
}

type EpisodeLister interface {
	ListRecent(ctx context.Context) []models.Episode
}

type FeedRenderer interface {
	Render(ctx context.Context) ([]byte, error)
}

// Site is the podcast identity shown on the home page.
type Site struct {
	Title       string
	Description string
	Image       string
}

type Handlers struct {
	templates      *template.Template
	validator      Validator
	runner         worker.Runner
	episodes       EpisodeLister
	feed           FeedRenderer
	site           Site
	maxRequestSize int64
	logger         zerolog.Logger
	location       *time.Location
}

type Options struct {
	Templates      *template.Template
	Validator      Validator
	Runner         worker.Runner
	Episodes       EpisodeLister
	Feed           FeedRenderer
	Site           Site
	MaxRequestSize int64
	Logger         zerolog.Logger
}

func New(opts Options) *Handlers {
	return &Handlers{
		templates:      opts.Templates,
		validator:      opts.Validator,
		runner:         opts.Runner,
		episodes:       opts.Episodes,
		feed:           opts.Feed,
		site:           opts.Site,
		maxRequestSize: opts.MaxRequestSize,
		logger:         opts.Logger,
		location:       time.Local,
	}
}

type homeEpisode struct {
	Filename    string
	Title       string
	Description template.HTML
	PublishedAt string
	Duration    string
}

type homePage struct {
	Site
	Episodes []homeEpisode
}

// Home lists every episode, newest first.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	episodes := h.episodes.ListRecent(r.Context())

	page := homePage{Site: h.site, Episodes: make([]homeEpisode, 0, len(episodes))}
	for _, ep := range episodes {
		page.Episodes = append(page.Episodes, homeEpisode{
			Filename:    ep.Filename,
			Title:       ep.Title,
			Description: FormatDescription(ep.Description),
			PublishedAt: h.localDate(ep.PubDate),
			Duration:    ep.DurationOrDefault(),
		})
	}

	h.render(w, "index.html", page)
}

// CreateForm serves the submission page.
func (h *Handlers) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "create.html", nil)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (h *Handlers) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("Error executing template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) localDate(pubDate string) string {
	t, err := time.Parse(models.PubDateLayout, pubDate)
	if err != nil {
		return pubDate
	}
	return t.In(h.location).Format(HomeDateLayout)
}

// FormatDescription escapes a description and turns its line breaks into
// <br> tags, folding blank lines.
func FormatDescription(desc string) template.HTML {
	desc = strings.TrimSpace(desc)
	desc = strings.ReplaceAll(desc, "\r\n", "\n")
	desc = strings.ReplaceAll(desc, "\r", "\n")
	desc = strings.ReplaceAll(desc, "\n\n", "\n")
	escaped := template.HTMLEscapeString(desc)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
