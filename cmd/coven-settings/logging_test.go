// ABOUTME: Tests for CLI logger setup
// ABOUTME: Console formats, level filtering and the JSON file fan-out

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-settings/internal/config"
)

func TestSetupLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, "", &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.With("component", "settings").Info("saved setting", "key", "site_name")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "INF saved setting")
	assert.Contains(t, out, "component=settings")
	assert.Contains(t, out, "key=site_name")
	assert.NotContains(t, out, "hidden")
}

func TestSetupLogger_TextGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := setupLogger(config.LoggingConfig{Level: "debug", Format: "text"}, "", &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.With("component", "settings").WithGroup("cache").
		Debug("invalidated", "entry", "settings.all", slog.Group("load", "calls", 2))

	out := buf.String()
	assert.Contains(t, out, "DBG invalidated")
	assert.Contains(t, out, " component=settings")
	assert.NotContains(t, out, "cache.component")
	assert.Contains(t, out, "cache.entry=settings.all")
	assert.Contains(t, out, "cache.load.calls=2")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := setupLogger(config.LoggingConfig{Level: "debug", Format: "json"}, "", &buf)
	require.NoError(t, err)
	defer closeFn()

	logger.Debug("populated settings cache", "entry", "settings.all")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "populated settings cache", rec["msg"])
	assert.Equal(t, "settings.all", rec["entry"])
}

func TestSetupLogger_FanOutToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "settings.log")

	logger, closeFn, err := setupLogger(config.LoggingConfig{Level: "info", Format: "text"}, path, &buf)
	require.NoError(t, err)

	logger.Warn("removed setting", "key", "theme")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "WRN removed setting")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "theme", rec["key"])
}

func TestSetupLogger_BadFile(t *testing.T) {
	_, _, err := setupLogger(config.LoggingConfig{Level: "info"}, filepath.Join(t.TempDir(), "missing", "x.log"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("WARN").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
