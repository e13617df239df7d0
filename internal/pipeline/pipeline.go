// Package pipeline turns normalized text into a finished episode file:
// segmenting, synthesizing each segment, joining them in order and measuring
// the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hypercast/internal/audio"
	"hypercast/internal/log"
	"hypercast/internal/metrics"
	"hypercast/internal/models"
	"hypercast/internal/storage"
)

// Synthesizer converts one piece of text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, w io.Writer) error
}

// Encoder joins audio files, in order, into one output file.
type Encoder interface {
	Concat(ctx context.Context, inputs []string, output string) error
}

// Prober measures the playing time of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// SegmentError reports a segment that could not be synthesized.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// MissingSegmentsError reports gaps in the segment index sequence.
type MissingSegmentsError struct {
	Missing []int
}

func (e *MissingSegmentsError) Error() string {
	idx := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		idx[i] = fmt.Sprint(m)
	}
	return "missing segment indices: " + strings.Join(idx, ", ")
}

// Config holds the tunables of a run.
type Config struct {
	SegmentLength int
	Concurrency   int
	IntroPath     string
	Extension     string
}

// Result describes a finished episode file.
type Result struct {
	Filename string
	Path     string
	Duration string
}

const maxReserveAttempts = 5

// Pipeline produces episode audio files under a storage layout.
type Pipeline struct {
	tts     Synthesizer
	encoder Encoder
	prober  Prober
	layout  storage.Layout
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
}

func New(tts Synthesizer, encoder Encoder, prober Prober, layout storage.Layout, cfg Config, logger zerolog.Logger) *Pipeline {
	if cfg.SegmentLength <= 0 {
		cfg.SegmentLength = DefaultSegmentLength
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Extension == "" {
		cfg.Extension = "mp3"
	}
	return &Pipeline{
		tts:     tts,
		encoder: encoder,
		prober:  prober,
		layout:  layout,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run synthesizes text into a new episode file named after base. Every
// scratch file the run creates is gone when Run returns, on success or not.
func (p *Pipeline) Run(ctx context.Context, text, base string) (Result, error) {
	logger := log.WithContext(ctx, p.logger)

	segments := Split(text, p.cfg.SegmentLength)
	if len(segments) == 0 {
		return Result{}, errors.New("no text to synthesize")
	}
	logger.Info().Int("segments", len(segments)).Msg("Split text into segments")

	run, err := p.layout.NewRunDir()
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := run.Release(); err != nil {
			logger.Warn().Err(err).Str("path", run.Path).Msg("Failed to remove run directory")
		}
	}()

	synthesized, err := p.synthesize(ctx, segments, base, run)
	if err != nil {
		return Result{}, err
	}

	filename, path, err := p.combine(ctx, synthesized, base, run)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Filename: filename,
		Path:     path,
		Duration: p.measure(ctx, path),
	}, nil
}

func (p *Pipeline) synthesize(ctx context.Context, segments []models.Segment, base string, run *storage.RunDir) ([]models.Segment, error) {
	logger := log.WithContext(ctx, p.logger)
	out := make([]models.Segment, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, seg := range segments {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &SegmentError{Index: seg.Index, Err: fmt.Errorf("synthesizer panicked: %v", r)}
				}
			}()

			path := run.File(NewFilename(base, p.now(), "_segment", p.cfg.Extension))

			logger.Debug().Int("segment", seg.Index).Int("chars", len([]rune(seg.Text))).Msg("Synthesizing segment")
			if err := p.synthesizeTo(gctx, seg.Text, path); err != nil {
				return &SegmentError{Index: seg.Index, Err: err}
			}
			metrics.SegmentsSynthesizedTotal.Inc()

			seg.AudioPath = path
			out[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Speech synthesis failed, aborting run")
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) synthesizeTo(ctx context.Context, text, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create segment file: %w", err)
	}
	defer f.Close()

	if err := p.tts.Synthesize(ctx, text, f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write segment file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("segment file not materialized: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("segment file is empty")
	}
	return nil
}

// combine joins synthesized segments into a new episode file. Segments may
// arrive in any order; their indices must form 0..N-1 without gaps. The
// segment files stay owned by the caller; the partial output is written inside
// run and moved into place once complete.
func (p *Pipeline) combine(ctx context.Context, segments []models.Segment, base string, run *storage.RunDir) (string, string, error) {
	logger := log.WithContext(ctx, p.logger)

	ordered, err := orderSegments(segments)
	if err != nil {
		return "", "", err
	}

	inputs := make([]string, 0, len(ordered)+1)
	if intro := p.introClip(ctx, logger); intro != "" {
		inputs = append(inputs, intro)
	}
	for _, seg := range ordered {
		inputs = append(inputs, seg.AudioPath)
	}

	filename, path, err := p.reserve(base)
	if err != nil {
		return "", "", err
	}

	partial := run.File(strings.TrimSuffix(filename, "."+p.cfg.Extension) + ".partial." + p.cfg.Extension)

	if err := p.encoder.Concat(ctx, inputs, partial); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("failed to combine segments: %w", err)
	}
	if err := os.Rename(partial, path); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("failed to move episode into place: %w", err)
	}

	logger.Info().Str("filename", filename).Int("segments", len(ordered)).Msg("Combined audio")
	return filename, path, nil
}

// orderSegments sorts by index and rejects duplicate or missing indices.
func orderSegments(segments []models.Segment) ([]models.Segment, error) {
	if len(segments) == 0 {
		return nil, errors.New("no segments to combine")
	}

	ordered := make([]models.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	n := len(ordered)
	if last := ordered[n-1].Index + 1; last > n {
		n = last
	}
	seen := make(map[int]bool, len(ordered))
	for _, seg := range ordered {
		if seg.Index < 0 {
			return nil, fmt.Errorf("invalid segment index %d", seg.Index)
		}
		if seen[seg.Index] {
			return nil, fmt.Errorf("duplicate segment index %d", seg.Index)
		}
		seen[seg.Index] = true
	}

	var missing []int
	for i := 0; i < n; i++ {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingSegmentsError{Missing: missing}
	}
	return ordered, nil
}

// introClip returns the intro path if it exists and decodes, else "".
func (p *Pipeline) introClip(ctx context.Context, logger zerolog.Logger) string {
	if p.cfg.IntroPath == "" {
		return ""
	}
	if _, err := os.Stat(p.cfg.IntroPath); err != nil {
		logger.Warn().Err(err).Str("path", p.cfg.IntroPath).Msg("Intro clip unavailable, continuing without it")
		return ""
	}
	if _, err := p.prober.Duration(ctx, p.cfg.IntroPath); err != nil {
		logger.Warn().Err(err).Str("path", p.cfg.IntroPath).Msg("Intro clip could not be decoded, continuing without it")
		return ""
	}
	return p.cfg.IntroPath
}

// reserve claims a fresh episode filename by creating it exclusively.
func (p *Pipeline) reserve(base string) (string, string, error) {
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		filename := NewFilename(base, p.now(), "", p.cfg.Extension)
		path := p.layout.ArtifactPath(filename)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to reserve episode file: %w", err)
		}
		f.Close()
		return filename, path, nil
	}
	return "", "", errors.New("failed to reserve a unique episode filename")
}

func (p *Pipeline) measure(ctx context.Context, path string) string {
	d, err := p.prober.Duration(ctx, path)
	if err != nil {
		logger := log.WithContext(ctx, p.logger)
		logger.Warn().Err(err).Str("path", path).Msg("Could not measure episode duration")
		return models.DefaultDuration
	}
	return audio.FormatDuration(d)
}
