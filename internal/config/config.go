package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration with support for environment variables and command-line flags
type AppConfig struct {
	// Server
	Port           string  `long:"port" env:"PORT" default:"4973" description:"HTTP server port"`
	BaseURL        string  `long:"base-url" env:"BASE_URL" default:"http://localhost:4973" description:"Public base URL used in feed links"`
	APIToken       string  `long:"api-token" env:"API_TOKEN" description:"Pre-shared secret expected in the X-API-Key header"`
	MaxRequestSize int64   `long:"max-request-size" env:"MAX_REQUEST_SIZE" default:"1048576" description:"Maximum request body size in bytes"`
	RateLimit      float64 `long:"rate-limit" env:"RATE_LIMIT" default:"0.2" description:"Submissions per second allowed per client"`
	RateBurst      int     `long:"rate-burst" env:"RATE_BURST" default:"5" description:"Submission burst size per client"`
	TrustProxy     bool    `long:"trust-proxy" env:"TRUST_PROXY" description:"Take the client address from X-Forwarded-For (only behind a reverse proxy)"`

	// Storage
	DataDir    string `long:"data-dir" env:"DATA_DIR" default:"data" description:"Directory holding the episode database"`
	StaticDir  string `long:"static-dir" env:"STATIC_DIR" default:"static" description:"Directory served under /static (audio and images)"`
	IntroSound string `long:"intro-sound" env:"INTRO_SOUND" default:"assets/intro-sound.mp3" description:"Optional intro clip prepended to every episode"`

	// Feed
	FeedTitle       string `long:"feed-title" env:"FEED_TITLE" default:"Hypercast" description:"Podcast title"`
	FeedDescription string `long:"feed-description" env:"FEED_DESCRIPTION" default:"A personal podcast generator for turning articles into audio for offline listening." description:"Podcast description"`
	FeedImage       string `long:"feed-image" env:"FEED_IMAGE" default:"podcast-cover.png" description:"Cover image file name under static/images"`
	FeedLanguage    string `long:"feed-language" env:"FEED_LANGUAGE" default:"en-us" description:"Feed language"`

	// Remote capabilities
	OpenAIAPIKey        string  `long:"openai-api-key" env:"OPENAI_API_KEY" description:"API key for the text and speech models"`
	OpenAIBaseURL       string  `long:"openai-base-url" env:"OPENAI_BASE_URL" description:"Override for the model API base URL"`
	CleanupModel        string  `long:"cleanup-model" env:"CONTENT_CLEANUP_MODEL" default:"gpt-4o-mini" description:"Model used for text cleanup and summaries"`
	TitleModel          string  `long:"title-model" env:"TITLE_GENERATION_MODEL" default:"gpt-4o-mini" description:"Model used for title generation"`
	TTSModel            string  `long:"tts-model" env:"TTS_MODEL" default:"tts-1" description:"Text-to-speech model"`
	TTSVoice            string  `long:"tts-voice" env:"TTS_VOICE" default:"onyx" description:"Text-to-speech voice"`
	TTSSpeed            float64 `long:"tts-speed" env:"TTS_SPEED" default:"1.0" description:"Text-to-speech speed"`
	TTSConcurrency      int     `long:"tts-concurrency" env:"TTS_CONCURRENCY" default:"1" description:"Segments synthesized in parallel per job"`
	MaxContentInflation float64 `long:"max-content-inflation" env:"MAX_CONTENT_INFLATION" default:"1.1" description:"Largest accepted cleaned/original size ratio"`

	// Content limits
	MaxURLLength  int `long:"max-url-length" env:"MAX_URL_LENGTH" default:"2048" description:"Maximum URL length in characters"`
	MaxInputSize  int `long:"max-input-size" env:"MAX_INPUT_SIZE" default:"102400" description:"Maximum input size in bytes"`
	SegmentLength int `long:"segment-length" env:"SEGMENT_LENGTH" default:"4096" description:"Maximum characters per speech segment"`

	// Audio
	AudioFormat  string `long:"audio-format" env:"AUDIO_FORMAT" default:"mp3" description:"Audio container format (only mp3 is supported)"`
	AudioBitrate string `long:"audio-bitrate" env:"AUDIO_BITRATE" default:"192k" description:"Final artifact bitrate"`
	FFmpegPath   string `long:"ffmpeg-path" env:"FFMPEG_PATH" default:"ffmpeg" description:"ffmpeg binary"`
	FFprobePath  string `long:"ffprobe-path" env:"FFPROBE_PATH" default:"ffprobe" description:"ffprobe binary"`

	// Jobs
	JobConcurrency int           `long:"job-concurrency" env:"JOB_CONCURRENCY" default:"0" description:"Maximum jobs running at once (0 = unbounded)"`
	JobTimeout     time.Duration `long:"job-timeout" env:"JOB_TIMEOUT" default:"0s" description:"Deadline for a whole job (0 = none)"`
	RedisAddr      string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address; when set jobs go through the asynq queue"`
	TmpMaxAge      time.Duration `long:"tmp-max-age" env:"TMP_MAX_AGE" default:"1h" description:"Age after which leftover temporary audio is swept"`

	LogLevel string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level"`
}

// ErrHelp is returned by Load when help output was requested.
var ErrHelp = errors.New("help requested")

// Load reads an optional .env file and then parses args and the environment.
func Load(args []string) (*AppConfig, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	var cfg AppConfig
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that struct tags cannot express.
func (c *AppConfig) Validate() error {
	if c.SegmentLength <= 0 {
		return fmt.Errorf("segment length must be positive, got %d", c.SegmentLength)
	}
	if c.MaxContentInflation < 1 {
		return fmt.Errorf("max content inflation must be at least 1, got %v", c.MaxContentInflation)
	}
	if c.TTSConcurrency < 1 {
		c.TTSConcurrency = 1
	}
	switch c.AudioFormat {
	case "":
		c.AudioFormat = "mp3"
	case "mp3":
	default:
		return fmt.Errorf("unsupported audio format %q: episodes are encoded as mp3", c.AudioFormat)
	}
	return nil
}

// ErrMissingAPIToken is returned by RequireAPIToken when no secret is set.
var ErrMissingAPIToken = errors.New("API_TOKEN must be set")

// RequireAPIToken fails unless a submission secret is configured. Only the
// HTTP server needs one; workers and the CLI do not.
func (c *AppConfig) RequireAPIToken() error {
	if c.APIToken == "" {
		return ErrMissingAPIToken
	}
	return nil
}

// DatabasePath is the SQLite file holding the episodes table.
func (c *AppConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "hypercast.db")
}

// LockPath is the file used to serialise temporary directory sweeps.
func (c *AppConfig) LockPath() string {
	return filepath.Join(c.DataDir, "sweep.lock")
}

// AudioDir holds finished episode artifacts.
func (c *AppConfig) AudioDir() string {
	return filepath.Join(c.StaticDir, "audio")
}
