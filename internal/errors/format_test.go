package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: a storage failure
	err := StorageError("failed to write index", errors.New("disk I/O error"))

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: message, hint and code are all present
	assert.Contains(t, out, "Error: failed to write index")
	assert.Contains(t, out, "Hint: check free disk space")
	assert.Contains(t, out, "Code: ERR_207_STORAGE_FAILURE")
}

func TestFormatForCLI_StandardError(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "Code: ERR_501_INTERNAL")
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_FetchError(t *testing.T) {
	// Given: a download failure for one path
	err := FetchError("/docs/a.pdf", errors.New("connection reset"))

	// When: encoding as JSON
	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	// Then: machine-readable fields are populated
	assert.Equal(t, "ERR_304_FETCH_FAILED", got["code"])
	assert.Equal(t, "NETWORK", got["category"])
	assert.Equal(t, true, got["retryable"])
	assert.Equal(t, "connection reset", got["cause"])
	assert.Equal(t, "/docs/a.pdf", got["details"].(map[string]any)["path"])
}

func TestFormatJSON_Nil(t *testing.T) {
	data, err := FormatJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestLogAttrs(t *testing.T) {
	// Given: a listing error with a path detail
	err := ListError("/docs/", errors.New("timeout"))

	// When: flattening for slog
	attrs := LogAttrs(err)

	// Then: code, message, retryable flag and detail are present
	require.Len(t, attrs, 4)
	assert.Equal(t, slog.String("error_code", ErrCodeListFailed), attrs[0])
	assert.Equal(t, slog.Bool("retryable", true), attrs[2])
	assert.Equal(t, slog.String("path", "/docs/"), attrs[3])

	assert.Equal(t, []any{slog.String("error", "plain")}, LogAttrs(errors.New("plain")))
	assert.Nil(t, LogAttrs(nil))
}
