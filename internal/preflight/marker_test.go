package preflight

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastPassed_NoMarker(t *testing.T) {
	_, ok := LastPassed(t.TempDir())
	assert.False(t, ok)
}

func TestMarkPassed_CreatesDataDir(t *testing.T) {
	// Given: a data directory that does not exist yet
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	// When: marking as passed
	require.NoError(t, MarkPassed(dataDir))

	// Then: the marker exists and reads back as a recent time
	assert.FileExists(t, filepath.Join(dataDir, MarkerFile))
	at, ok := LastPassed(dataDir)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, 5*time.Second)
}

func TestLastPassed_GarbageMarker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarkerFile), []byte("yesterday"), 0o644))

	_, ok := LastPassed(dir)

	assert.False(t, ok)
}
