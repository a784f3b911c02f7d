package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Console: &buf})
	require.NoError(t, err)
	defer closer()

	logger.Info("Moved pack.png", "dir", "/out/pack")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "Moved pack.png")
	assert.NotContains(t, out, "hidden")
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Console: &buf, Verbose: true})
	require.NoError(t, err)
	defer closer()

	logger.Debug("lookup", "key", "items/SWORD.json")
	assert.Contains(t, buf.String(), "items/SWORD.json")
}

func TestNewWithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "MyPack.log")

	logger, closer, err := New(Options{Console: &buf, FilePath: path})
	require.NoError(t, err)

	logger.Warn("ctm folder was empty and has been removed")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ctm folder was empty")
	assert.Contains(t, buf.String(), "ctm folder was empty")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotNil(t, logger)
	logger.Error("nowhere")
}
