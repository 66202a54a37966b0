package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: slog.LevelInfo, JSON: true, Writer: &buf})
	t.Cleanup(Disable)
	require.True(t, Enabled())

	Component("pool").Info("reconnected", "attempts", 2)
	Debug("below the level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reconnected", entry["msg"])
	assert.Equal(t, "pool", entry["component"])
	assert.EqualValues(t, 2, entry["attempts"])
}

func TestDisabledLoggerDiscards(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Writer: &buf})
	Disable()

	Error("dropped")
	assert.False(t, Enabled())
	assert.Zero(t, buf.Len())
}
