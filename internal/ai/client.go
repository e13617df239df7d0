// Package ai adapts the hosted text and speech models to the capabilities the
// episode pipeline consumes.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const (
	cleanupPrompt = `You will be given articles that have been extracted from web content. These articles may contain HTML, javascript, CSS, other code, web formatting and navigation elements that are not part of the main article content. Your task is to clean up these articles by removing any such unnecessary elements. It is crucial that you do not alter the content of the articles in any way; only remove parts that are clearly not meant to be part of the article's title, author, date, section headings and the main body. This includes related links, navigation menus, footers not related to the article, and stray formatting tags.

Please ensure that:
- The integrity of the article's main content remains untouched.
- Section titles and article titles remain intact.
- Only extraneous text or elements not part of the article's narrative or informational content are removed.
- Do not correct grammar, punctuation, or style unless they are part of removed elements.
- Preserve all formatting that pertains to the structure of the article content itself.
- Only respond with the cleaned article content.`

	titlePrompt = "First, try to identify if there is a clear title within this article content. If you find a suitable title, provide it. If not, generate a new title that concisely represents its essence. The title should be brief and to the point. Only output the located or created title and nothing else. *Do not* output 'Title:' in the output."

	summaryPrompt = "Generate a brief, engaging summary of the provided content in 2-3 sentences. Focus on the main points and key takeaways. Keep it concise but informative."
)

// Config selects models and voice parameters.
type Config struct {
	APIKey       string
	BaseURL      string
	CleanupModel string
	TitleModel   string
	TTSModel     string
	TTSVoice     string
	TTSSpeed     float64
	AudioFormat  string
}

// Client implements the text cleanup, title, summary and speech capabilities.
type Client struct {
	api *openai.Client
	cfg Config
}

func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg), cfg: cfg}
}

// CleanText strips residual markup and navigation from text at low temperature.
func (c *Client) CleanText(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.CleanupModel,
		Temperature: 0.3,
		TopP:        1,
		Messages:    messages(cleanupPrompt, "Article Content: "+text),
	})
}

// GenerateTitle returns a single short title line for prefix.
func (c *Client) GenerateTitle(ctx context.Context, prefix string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.TitleModel,
		Temperature: 0.3,
		TopP:        1,
		MaxTokens:   20,
		Stop:        []string{"\n"},
		Messages:    messages(titlePrompt, "Article Content: "+prefix),
	})
}

// Summarize returns a two to three sentence summary of prefix.
func (c *Client) Summarize(ctx context.Context, prefix string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.CleanupModel,
		Temperature: 0.7,
		TopP:        1,
		MaxTokens:   100,
		Messages:    messages(summaryPrompt, "Content: "+prefix),
	})
}

// Synthesize converts text to audio and streams it into w.
func (c *Client) Synthesize(ctx context.Context, text string, w io.Writer) error {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.TTSModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.cfg.TTSVoice),
		ResponseFormat: openai.SpeechResponseFormat(c.cfg.AudioFormat),
		Speed:          c.cfg.TTSSpeed,
	})
	if err != nil {
		return fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Close()

	if _, err := io.Copy(w, resp); err != nil {
		return fmt.Errorf("failed to read speech audio: %w", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func messages(system, user string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}
}
