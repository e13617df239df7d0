package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypercast/internal/app"
	"hypercast/internal/config"
	"hypercast/internal/worker"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	root := t.TempDir()
	return &config.AppConfig{
		APIToken:            "secret",
		DataDir:             filepath.Join(root, "data"),
		StaticDir:           filepath.Join(root, "static"),
		SegmentLength:       4096,
		MaxContentInflation: 1.1,
		TTSConcurrency:      1,
		AudioFormat:         "mp3",
		TmpMaxAge:           time.Hour,
	}
}

func TestNewRunnerInProcess(t *testing.T) {
	cfg := testConfig(t)
	components, err := app.Open(cfg)
	require.NoError(t, err)
	defer components.Close()

	runner, stop := newRunner(cfg, components)
	defer stop()

	_, ok := runner.(*worker.Spawner)
	assert.True(t, ok, "expected in-process spawner without REDIS_ADDR")
	assert.DirExists(t, components.Layout.TmpDir)
	assert.FileExists(t, cfg.DatabasePath())
}

func TestNewRunnerQueue(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = "127.0.0.1:6379"
	components, err := app.Open(cfg)
	require.NoError(t, err)
	defer components.Close()

	runner, stop := newRunner(cfg, components)
	defer stop()

	_, ok := runner.(*worker.QueueRunner)
	assert.True(t, ok, "expected asynq runner with REDIS_ADDR")
}
