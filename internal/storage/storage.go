// Package storage owns the on-disk layout for episode audio: finished
// artifacts in the audio directory, per-run scratch directories in its tmp
// child.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"hypercast/internal/metrics"
)

// Layout locates the audio and scratch directories.
type Layout struct {
	AudioDir string
	TmpDir   string
}

func NewLayout(audioDir string) Layout {
	return Layout{AudioDir: audioDir, TmpDir: filepath.Join(audioDir, "tmp")}
}

// EnsureDirs creates the audio and tmp directories if missing.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.AudioDir, l.TmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ArtifactPath is the final location of an episode file.
func (l Layout) ArtifactPath(filename string) string {
	return filepath.Join(l.AudioDir, filename)
}

const (
	runDirPrefix = "run-"
	runLockName  = ".lock"
)

// RunDir is the private scratch directory of one pipeline run. Its lock is
// held for the life of the run; the sweeper never removes a locked RunDir.
type RunDir struct {
	Path string
	lock *flock.Flock
}

// NewRunDir creates and locks a fresh scratch directory under TmpDir.
func (l Layout) NewRunDir() (*RunDir, error) {
	dir, err := os.MkdirTemp(l.TmpDir, runDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, runLockName))
	ok, err := lock.TryLock()
	if err == nil && !ok {
		err = errors.New("lock held elsewhere")
	}
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to lock run directory: %w", err)
	}
	return &RunDir{Path: dir, lock: lock}, nil
}

// File is a path inside the run directory.
func (r *RunDir) File(name string) string {
	return filepath.Join(r.Path, name)
}

// Release deletes the directory with everything in it and drops the lock.
func (r *RunDir) Release() error {
	err := os.RemoveAll(r.Path)
	if unlockErr := r.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// ErrSweepLocked is returned when another process holds the sweep lock.
var ErrSweepLocked = errors.New("tmp sweep already running")

// Sweeper removes scratch files that outlived their run, for example after a
// crash mid-job. Loose files older than maxAge are deleted, as are run
// directories older than maxAge whose lock nobody holds any more.
type Sweeper struct {
	layout Layout
	maxAge time.Duration
	lock   *flock.Flock
	logger zerolog.Logger
	now    func() time.Time
}

func NewSweeper(layout Layout, lockPath string, maxAge time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		layout: layout,
		maxAge: maxAge,
		lock:   flock.New(lockPath),
		logger: logger,
		now:    time.Now,
	}
}

// Sweep deletes stale files from the tmp directory and returns how many it
// removed. It fails with ErrSweepLocked when another sweep holds the lock.
func (s *Sweeper) Sweep() (int, error) {
	if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return 0, ErrSweepLocked
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	entries, err := os.ReadDir(s.layout.TmpDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read tmp directory: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.layout.TmpDir, entry.Name())
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), runDirPrefix) && s.removeAbandonedRun(path) {
				removed++
			}
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove stale tmp file")
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.TempFilesSweptTotal.Add(float64(removed))
		s.logger.Info().Int("removed", removed).Msg("Swept stale tmp files")
	}
	return removed, nil
}

// removeAbandonedRun deletes a run directory unless its run is still alive.
func (s *Sweeper) removeAbandonedRun(dir string) bool {
	lock := flock.New(filepath.Join(dir, runLockName))
	ok, err := lock.TryLock()
	if err != nil {
		s.logger.Warn().Err(err).Str("path", dir).Msg("Failed to check run directory lock")
		return false
	}
	if !ok {
		s.logger.Debug().Str("path", dir).Msg("Run still in progress, keeping its files")
		return false
	}
	defer lock.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn().Err(err).Str("path", dir).Msg("Failed to remove abandoned run directory")
		return false
	}
	return true
}
