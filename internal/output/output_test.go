package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/search"
)

func TestWriter_StatusIcons(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Success("Index complete") }, "✅ Index complete\n"},
		{"warning", func(w *Writer) { w.Warningf("%d skipped", 3) }, "⚠️  3 skipped\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %s", "disk") }, "❌ failed: disk\n"},
		{"no icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(New(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Fields_AlignsValues(t *testing.T) {
	// Given: labels of different length
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing fields
	w.Fields([2]string{"Scope", "/docs/"}, [2]string{"Indexed files", "12"})

	// Then: values start in the same column
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Index(lines[0], "/docs/"), strings.Index(lines[1], "12"))
}

func TestWriter_Hits(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Hits("契約", &search.Result{
		Hits: []search.Hit{
			{ID: 1, Path: "/docs/a.pdf", Source: search.SourceExact},
			{ID: 2, Path: "/docs/b.pdf", Source: search.SourceNGram},
		},
		Refined: true,
	})

	out := buf.String()
	assert.Contains(t, out, `2 files for "契約" (refined)`)
	assert.Contains(t, out, "1. /docs/a.pdf  [exact]")
	assert.Contains(t, out, "2. /docs/b.pdf  [ngram]")
}

func TestWriter_Hits_EmptyNeverIndexed(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Hits("x", &search.Result{NeverIndexed: true})

	assert.Contains(t, buf.String(), `No results for "x"`)
	assert.Contains(t, buf.String(), "amandocs index")
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).JSON(map[string]int{"indexed": 3}))

	assert.Equal(t, "{\n  \"indexed\": 3\n}\n", buf.String())
}
