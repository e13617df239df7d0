// Package audio wraps the ffmpeg and ffprobe binaries used to join speech
// segments into an episode and to measure its length.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var execCommandContext = exec.CommandContext

const (
	DefaultFFmpegPath  = "ffmpeg"
	DefaultFFprobePath = "ffprobe"
	DefaultBitrate     = "192k"
)

// FFmpeg concatenates and probes audio files with the external tools.
type FFmpeg struct {
	BinPath   string
	ProbePath string
	Bitrate   string
	logger    zerolog.Logger
}

func NewFFmpeg(binPath, probePath, bitrate string, logger zerolog.Logger) *FFmpeg {
	if binPath == "" {
		binPath = DefaultFFmpegPath
	}
	if probePath == "" {
		probePath = DefaultFFprobePath
	}
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	return &FFmpeg{BinPath: binPath, ProbePath: probePath, Bitrate: bitrate, logger: logger}
}

// Concat joins inputs in order and encodes the result as MP3 at output.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return errors.New("no audio inputs to concatenate")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	var filter strings.Builder
	for i, in := range inputs {
		args = append(args, "-i", in)
		fmt.Fprintf(&filter, "[%d:a]", i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[out]", len(inputs))
	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:a", "libmp3lame",
		"-b:a", f.Bitrate,
		"-f", "mp3",
		output,
	)

	f.logger.Debug().Int("inputs", len(inputs)).Str("output", output).Msg("Running ffmpeg concat")
	cmd := execCommandContext(ctx, f.BinPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		f.logger.Error().Err(err).Str("output", string(out)).Msg("ffmpeg failed")
		return fmt.Errorf("failed to execute ffmpeg: %w", err)
	}
	return nil
}

// Duration reports the playing time of the audio file at path.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := execCommandContext(ctx, f.ProbePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to execute ffprobe: %w", err)
	}

	raw := strings.TrimSpace(string(out))
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", raw, err)
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond, nil
}

// FormatDuration renders d as HH:MM:SS, rounded to the nearest second.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
