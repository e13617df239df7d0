// Package content validates submitted input and fetches remote articles.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxURLLength = 2048       // Standard browser URL length limit
	DefaultMaxInputSize = 100 * 1024 // 100KB for direct text input

	// BrowserUserAgent is sent with every fetch; many sites refuse bare clients.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxFetchBytes = 10 << 20
)

var (
	ErrEmptyInput    = errors.New("input text is empty")
	ErrInputTooLarge = errors.New("input text too large")
	ErrURLTooLong    = errors.New("url too long")
)

var urlPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|` +
	`localhost|` +
	`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// ValidationError is a user-facing rejection of the submitted input.
type ValidationError struct {
	Reason  error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Reason }

// FetchError reports a failed outbound fetch of a submitted URL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Input is validated content ready for normalization. SourceURL is empty for
// literal text; for URLs Content holds the fetched HTML.
type Input struct {
	Content   string
	SourceURL string
}

// IsURL reports whether text looks like an absolute http(s) URL.
func IsURL(text string) bool {
	return urlPattern.MatchString(text)
}

// Acquirer classifies raw input, enforces limits and fetches URLs.
type Acquirer struct {
	client       *http.Client
	maxURLLength int
	maxInputSize int
	logger       zerolog.Logger
}

func NewAcquirer(client *http.Client, maxURLLength, maxInputSize int, logger zerolog.Logger) *Acquirer {
	if client == nil {
		client = http.DefaultClient
	}
	if maxURLLength <= 0 {
		maxURLLength = DefaultMaxURLLength
	}
	if maxInputSize <= 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Acquirer{
		client:       client,
		maxURLLength: maxURLLength,
		maxInputSize: maxInputSize,
		logger:       logger,
	}
}

// Validate checks raw input and, for URLs, performs a single fetch.
// It returns *ValidationError or *FetchError on rejection.
func (a *Acquirer) Validate(ctx context.Context, raw string) (Input, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Input{}, &ValidationError{Reason: ErrEmptyInput, Message: "Input text is empty"}
	}

	if len(text) > a.maxInputSize {
		return Input{}, &ValidationError{
			Reason:  ErrInputTooLarge,
			Message: fmt.Sprintf("Input text exceeds maximum size of %.1fKB", float64(a.maxInputSize)/1024),
		}
	}

	if !IsURL(text) {
		return Input{Content: text}, nil
	}

	if len(text) > a.maxURLLength {
		return Input{}, &ValidationError{
			Reason:  ErrURLTooLong,
			Message: fmt.Sprintf("URL exceeds maximum length of %d characters", a.maxURLLength),
		}
	}

	html, err := a.fetch(ctx, text)
	if err != nil {
		a.logger.Error().Err(err).Str("url", text).Msg("Error fetching URL")
		return Input{}, err
	}
	return Input{Content: html, SourceURL: text}, nil
}

func (a *Acquirer) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	return string(body), nil
}
