package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSONComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", Out: &buf})
	require.NoError(t, err)
	defer l.Close()

	log := l.Component("resolver")
	log.Debug().Int("attempts", 3).Msg("consensus reached")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hybridcall", entry["app"])
	assert.Equal(t, "resolver", entry["component"])
	assert.Equal(t, float64(3), entry["attempts"])
	assert.Equal(t, "consensus reached", entry["message"])
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "error", Format: "json", Out: &buf})
	require.NoError(t, err)

	z := l.Zerolog()
	z.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hybridcall.log")
	var buf bytes.Buffer
	l, err := New(Config{Format: "json", File: path, Out: &buf})
	require.NoError(t, err)

	z := l.Zerolog()
	z.Info().Msg("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNop(t *testing.T) {
	l := Nop()
	log := l.Component("x")
	log.Info().Msg("nothing")
	assert.NoError(t, l.Close())
}
