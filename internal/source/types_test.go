package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

func TestNewFileEntry_Valid(t *testing.T) {
	fe, err := NewFileEntry("Manual.PDF", "/docs/Manual.PDF", 1000, "2024-01-01T00:00:00")

	require.NoError(t, err)
	assert.Equal(t, "/docs/Manual.PDF", fe.Path)
	assert.Equal(t, ".pdf", fe.Ext())
}

func TestNewFileEntry_RejectsMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		path     string
		size     int64
		modified string
	}{
		{"no name", "", "/docs/a.pdf", 1, "2024-01-01T00:00:00"},
		{"no path", "a.pdf", " ", 1, "2024-01-01T00:00:00"},
		{"negative size", "a.pdf", "/docs/a.pdf", -1, "2024-01-01T00:00:00"},
		{"no modified", "a.pdf", "/docs/a.pdf", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileEntry(tt.fileName, tt.path, tt.size, tt.modified)
			require.Error(t, err)
			assert.Equal(t, amanerrors.ErrCodeInvalidRecord, amanerrors.GetCode(err))
		})
	}
}

func TestNewFolder(t *testing.T) {
	f, err := NewFolder("docs", "/docs")
	require.NoError(t, err)
	assert.Equal(t, "/docs", f.FullPath)

	_, err = NewFolder("", "/docs")
	assert.Error(t, err)
	_, err = NewFolder("docs", "")
	assert.Error(t, err)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a.pdf"))
	assert.True(t, IsSupported("B.XLSX"))
	assert.True(t, IsSupported("notes.md"))
	assert.False(t, IsSupported("image.png"))
	assert.False(t, IsSupported("README"))
	assert.False(t, IsSupported("legacy.xls"))
	assert.False(t, IsSupported("old.doc"))
}

func TestFormatModified_UTCSeconds(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	ts := time.Date(2024, 1, 1, 9, 0, 0, 500, jst)

	assert.Equal(t, "2024-01-01T00:00:00Z", FormatModified(ts))
}

func TestResults_OK(t *testing.T) {
	assert.True(t, FetchResult{Data: []byte("x")}.OK())
	assert.False(t, FetchResult{Err: assert.AnError}.OK())
	assert.True(t, Extraction{}.OK())
	assert.False(t, Extraction{Err: ErrUnsupportedFormat}.OK())
}
