package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production", "info")
	log.Info("student_registered", "event", "student_registered", "log_type", "audit")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "student_registered", line["msg"])
	assert.Equal(t, "audit", line["log_type"])
	assert.Equal(t, "edugrant", line["service"])
}

func TestNewDevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "development", "debug")
	log.Debug("probe")
	assert.Contains(t, buf.String(), "msg=probe")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "development", "warn")
	log.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
