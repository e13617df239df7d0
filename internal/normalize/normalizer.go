// Package normalize turns validated input into narration text, a title and a
// description, degrading each remote step to a fixed fallback on failure.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"hypercast/internal/log"
	"hypercast/internal/metrics"
)

const (
	DefaultInflationFactor = 1.1
	TitlePrefixChars       = 300
	SummaryPrefixChars     = 1000

	PlaceholderTitle   = "Untitled Episode"
	PlaceholderSummary = "No summary available"
)

// Stage names used in logs and metrics.
const (
	StageCleanup = "cleanup"
	StageTitle   = "title"
	StageSummary = "summary"
)

// FallbackReason says why a stage used its fallback instead of the remote result.
type FallbackReason string

const (
	FallbackNone        FallbackReason = ""
	FallbackRemoteError FallbackReason = "remote_error"
	FallbackEmptyOutput FallbackReason = "empty_output"
	FallbackInflation   FallbackReason = "inflation"
)

var errEmptyOutput = errors.New("capability returned empty output")

// Capabilities are the remote text services the normalizer depends on.
type Capabilities interface {
	CleanText(ctx context.Context, text string) (string, error)
	GenerateTitle(ctx context.Context, prefix string) (string, error)
	Summarize(ctx context.Context, prefix string) (string, error)
}

// StageResult is the outcome of one remote call: the value used and, when it
// is a fallback, why.
type StageResult struct {
	Value    string
	Fallback FallbackReason
	Err      error
}

// UsedFallback reports whether Value is a fallback rather than remote output.
func (r StageResult) UsedFallback() bool {
	return r.Fallback != FallbackNone
}

// Stages records the outcome of every remote step of a normalization.
type Stages struct {
	Cleanup StageResult
	Title   StageResult
	Summary StageResult
}

// Result is normalized episode material.
type Result struct {
	Text        string
	Title       string
	Description string
	Stages      Stages
}

// Normalizer prepares episode text, title and description.
type Normalizer struct {
	caps            Capabilities
	inflationFactor float64
	logger          zerolog.Logger
}

func NewNormalizer(caps Capabilities, inflationFactor float64, logger zerolog.Logger) *Normalizer {
	if inflationFactor < 1 {
		inflationFactor = DefaultInflationFactor
	}
	return &Normalizer{caps: caps, inflationFactor: inflationFactor, logger: logger}
}

// Normalize runs extraction, cleanup, title and summary generation. Remote
// failures never abort it; each stage falls back independently.
func (n *Normalizer) Normalize(ctx context.Context, content, sourceURL string) (Result, error) {
	logger := log.WithContext(ctx, n.logger)

	text := content
	if sourceURL != "" {
		logger.Info().Str("url", sourceURL).Msg("Processing URL content")
		extracted, err := ExtractText(content)
		if err != nil {
			return Result{}, err
		}
		text = extracted
	} else {
		logger.Info().Msg("Processing raw text input")
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("no readable text found in input")
	}

	logger.Info().Msg("Cleaning text")
	cleanup := n.cleanText(ctx, text)
	n.observe(logger, StageCleanup, cleanup)

	logger.Info().Msg("Generating title")
	title := n.generateTitle(ctx, cleanup.Value)
	n.observe(logger, StageTitle, title)

	logger.Info().Msg("Generating summary")
	summary := n.summarize(ctx, cleanup.Value)
	n.observe(logger, StageSummary, summary)

	return Result{
		Text:        cleanup.Value,
		Title:       title.Value,
		Description: Describe(summary.Value, sourceURL),
		Stages: Stages{
			Cleanup: cleanup,
			Title:   title,
			Summary: summary,
		},
	}, nil
}

// Describe builds the episode description from a summary and optional source.
func Describe(summary, sourceURL string) string {
	if sourceURL == "" {
		return summary
	}
	return fmt.Sprintf("From URL: %s\n\n\n%s", sourceURL, summary)
}

func (n *Normalizer) cleanText(ctx context.Context, text string) StageResult {
	cleaned, err := n.caps.CleanText(ctx, text)
	if err != nil {
		return StageResult{Value: text, Fallback: FallbackRemoteError, Err: err}
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return StageResult{Value: text, Fallback: FallbackEmptyOutput, Err: errEmptyOutput}
	}
	if Inflated(len(text), len(cleaned), n.inflationFactor) {
		return StageResult{
			Value:    text,
			Fallback: FallbackInflation,
			Err:      fmt.Errorf("cleaned output grew from %d to %d bytes", len(text), len(cleaned)),
		}
	}
	return StageResult{Value: cleaned}
}

func (n *Normalizer) generateTitle(ctx context.Context, text string) StageResult {
	title, err := n.caps.GenerateTitle(ctx, Prefix(text, TitlePrefixChars))
	if err != nil {
		return StageResult{Value: PlaceholderTitle, Fallback: FallbackRemoteError, Err: err}
	}
	title = tidyTitle(title)
	if title == "" {
		return StageResult{Value: PlaceholderTitle, Fallback: FallbackEmptyOutput, Err: errEmptyOutput}
	}
	return StageResult{Value: title}
}

func (n *Normalizer) summarize(ctx context.Context, text string) StageResult {
	summary, err := n.caps.Summarize(ctx, Prefix(text, SummaryPrefixChars))
	if err != nil {
		return StageResult{Value: PlaceholderSummary, Fallback: FallbackRemoteError, Err: err}
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return StageResult{Value: PlaceholderSummary, Fallback: FallbackEmptyOutput, Err: errEmptyOutput}
	}
	return StageResult{Value: summary}
}

func (n *Normalizer) observe(logger zerolog.Logger, stage string, r StageResult) {
	if !r.UsedFallback() {
		return
	}
	metrics.IncFallback(stage, string(r.Fallback))
	logger.Warn().Err(r.Err).Str("stage", stage).Str("reason", string(r.Fallback)).Msg("Using fallback for remote capability")
}

// Inflated reports whether cleaned output grew past factor times the original.
func Inflated(originalBytes, cleanedBytes int, factor float64) bool {
	return float64(cleanedBytes) > float64(originalBytes)*factor
}

// Prefix returns at most n characters of s.
func Prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// tidyTitle keeps the first line and drops a leading "Title:" label and quotes.
func tidyTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if len(s) >= 6 && strings.EqualFold(s[:6], "title:") {
		s = strings.TrimSpace(s[6:])
	}
	return strings.Trim(s, `"' `)
}
