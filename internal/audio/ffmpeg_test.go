package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockExec(t *testing.T, mode string) *[]string {
	t.Helper()
	var calls []string
	original := execCommandContext
	t.Cleanup(func() { execCommandContext = original })
	execCommandContext = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		calls = append(calls, name+" "+strings.Join(arg, " "))
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, arg...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode}
		return cmd
	}
	return &calls
}

func TestConcatArguments(t *testing.T) {
	calls := mockExec(t, "ok")
	f := NewFFmpeg("", "", "", zerolog.Nop())

	err := f.Concat(context.Background(), []string{"intro.mp3", "seg0.mp3", "seg1.mp3"}, "out.mp3")

	require.NoError(t, err)
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.True(t, strings.HasPrefix(call, "ffmpeg "))
	assert.Contains(t, call, "-i intro.mp3 -i seg0.mp3 -i seg1.mp3")
	assert.Contains(t, call, "[0:a][1:a][2:a]concat=n=3:v=0:a=1[out]")
	assert.Contains(t, call, "-c:a libmp3lame -b:a 192k -f mp3 out.mp3")
}

func TestConcatFailure(t *testing.T) {
	mockExec(t, "fail")
	f := NewFFmpeg("", "", "", zerolog.Nop())

	err := f.Concat(context.Background(), []string{"seg0.mp3"}, "out.mp3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg")
}

func TestConcatNoInputs(t *testing.T) {
	calls := mockExec(t, "ok")
	f := NewFFmpeg("", "", "", zerolog.Nop())

	err := f.Concat(context.Background(), nil, "out.mp3")

	require.Error(t, err)
	assert.Empty(t, *calls)
}

func TestDuration(t *testing.T) {
	calls := mockExec(t, "probe")
	f := NewFFmpeg("", "/usr/bin/ffprobe", "", zerolog.Nop())

	d, err := f.Duration(context.Background(), "episode.mp3")

	require.NoError(t, err)
	assert.Equal(t, 83*time.Second+600*time.Millisecond, d)
	assert.Equal(t, "/usr/bin/ffprobe -v error -show_entries format=duration -of default=noprint_wrappers=1:nokey=1 episode.mp3", (*calls)[0])
}

func TestDurationGarbage(t *testing.T) {
	mockExec(t, "garbage")
	f := NewFFmpeg("", "", "", zerolog.Nop())

	_, err := f.Duration(context.Background(), "episode.mp3")

	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{83*time.Second + 600*time.Millisecond, "00:01:24"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{-time.Second, "00:00:00"},
		{26 * time.Hour, "26:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

// TestHelperProcess isn't a real test. It's used as a helper for tests that
// need to mock exec.Command.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("HELPER_MODE") {
	case "probe":
		fmt.Println("83.600000")
	case "garbage":
		fmt.Println("N/A")
	case "fail":
		fmt.Fprintln(os.Stderr, "Invalid data found when processing input")
		os.Exit(1)
	}
	os.Exit(0)
}
