package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Setenv(JSONEnv, "")
	var buf bytes.Buffer
	log := NewLogger("msbtool", "info", &buf)

	log.Debug("hidden")
	log.Info("parsed", "messages", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msbtool: parsed")
	assert.Contains(t, out, "messages=3")
}

func TestJSONLogger(t *testing.T) {
	t.Setenv(JSONEnv, "1")
	var buf bytes.Buffer
	NewLogger("msbtool", "trace", &buf).Trace("tag fallback", "tag", "<0.3>")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tag fallback", rec["@message"])
	assert.Equal(t, "<0.3>", rec["tag"])
	assert.Equal(t, "msbtool", rec["@module"])
}

func TestLogLevel(t *testing.T) {
	t.Setenv(LevelEnv, "")
	assert.Equal(t, "warn", LogLevel(""))
	assert.Equal(t, "debug", LogLevel("debug"))

	t.Setenv(LevelEnv, "trace")
	assert.Equal(t, "trace", LogLevel("debug"))
}
