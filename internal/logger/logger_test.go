package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONWithTimestampKey(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("UZT", 5*60*60)
	log := New(&buf, loc, "info")

	log.WithField("component", "test").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test", entry["component"])

	ts, ok := entry["ts"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(ts, "+05:00"), ts)
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, nil, "warn")

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, time.UTC, "loud")

	log.Debug("dropped")
	log.Info("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
