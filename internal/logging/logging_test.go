package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIHandlerFormat(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	logger := New(ModeCLI, &out, slog.LevelInfo)

	logger.With("component", "rotation").Info("guest rotated", "created", 1, "error", errors.New("boom"))

	line := out.String()
	assert.True(t, strings.HasPrefix(line, "INFO "), "got %q", line)
	assert.Contains(t, line, "| guest rotated")
	assert.Contains(t, line, "component=rotation")
	assert.Contains(t, line, "created=1")
	assert.Contains(t, line, "error=boom")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestCLIHandlerLevelFilter(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	logger := New(ModeCLI, &out, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("visible")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "visible")
}

func TestJSONMode(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	logger := New(ModeJSON, &out, nil)
	logger.Info("pass finished", "ok", true)

	assert.Contains(t, out.String(), `"msg":"pass finished"`)
	assert.Contains(t, out.String(), `"ok":true`)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for value, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		level, err := ParseLevel(value)
		require.NoError(t, err, value)
		assert.Equal(t, want, level, value)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseMode("json")
	require.NoError(t, err)
	assert.Equal(t, ModeJSON, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCLI, mode)

	_, err = ParseMode("xml")
	assert.Error(t, err)
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Ensure(nil))

	logger := New(ModeCLI, &strings.Builder{}, nil)
	assert.Same(t, logger, Ensure(logger))
}
