package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestNew_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, closeFn, err := New(Options{Dir: dir, Level: "info"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("room uploaded", zap.String("room_id", "abc"))
	require.NoError(t, closeFn())

	lines := readLines(t, filepath.Join(dir, FileName))
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "room uploaded", lines[0]["message"])
	assert.Equal(t, "abc", lines[0]["room_id"])
	assert.Contains(t, lines[0], "timestamp")
}

func TestNew_VerboseConsole(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := New(Options{Dir: t.TempDir(), Level: "warn", Verbose: true, Console: &console})
	require.NoError(t, err)

	logger.Debug("request", zap.String("url", "http://x"))
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "request")
	assert.Contains(t, console.String(), "http://x")
}

func TestNew_QuietConsole(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := New(Options{Dir: t.TempDir(), Level: "debug", Console: &console})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, closeFn())
	assert.Empty(t, console.String())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Dir: t.TempDir(), Level: "loud"})
	assert.Error(t, err)
}
