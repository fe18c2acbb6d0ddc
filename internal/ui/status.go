package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// LockInfo describes the build lock of a scope.
type LockInfo struct {
	Locked     bool    `json:"locked"`
	AgeSeconds float64 `json:"age_seconds,omitempty"`
	Stale      bool    `json:"stale,omitempty"`
	Owner      string  `json:"owner,omitempty"`
}

// StorageInfo lists the on-disk size of each index artifact in bytes.
type StorageInfo struct {
	Primary int64 `json:"primary"`
	WAL     int64 `json:"wal"`
	SHM     int64 `json:"shm"`
	Vector  int64 `json:"vector"`
	Total   int64 `json:"total"`
}

// StatusInfo contains index health information for one scope.
type StatusInfo struct {
	Source       string      `json:"source"`
	Scope        string      `json:"scope"`
	IndexedFiles int         `json:"indexed_files"`
	VectorNodes  int         `json:"vector_nodes"`
	Embedder     string      `json:"embedder"`
	Lock         LockInfo    `json:"lock"`
	Storage      StorageInfo `json:"storage"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(r.out, format, args...) }

	p("%s\n\n", r.styles.Header.Render("Index Status: "+displayScope(info.Scope)))
	p("  Source:       %s\n", info.Source)
	p("  Files:        %s\n", humanize.Comma(int64(info.IndexedFiles)))
	p("  Vectors:      %s\n", humanize.Comma(int64(info.VectorNodes)))
	p("  Embedder:     %s\n", info.Embedder)
	p("  Lock:         %s\n\n", r.renderLock(info.Lock))

	r.RenderStorage(info.Storage)
	return nil
}

// RenderStorage prints the storage breakdown.
func (r *StatusRenderer) RenderStorage(s StorageInfo) {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(r.out, format, args...) }
	p("  Storage:\n")
	p("    Index:      %s\n", FormatBytes(s.Primary))
	p("    WAL:        %s\n", FormatBytes(s.WAL))
	p("    SHM:        %s\n", FormatBytes(s.SHM))
	p("    Vectors:    %s\n", FormatBytes(s.Vector))
	p("    Total:      %s\n", r.styles.Active.Render(FormatBytes(s.Total)))
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *StatusRenderer) renderLock(l LockInfo) string {
	if !l.Locked {
		return r.styles.Success.Render("free")
	}
	age := time.Duration(l.AgeSeconds * float64(time.Second))
	desc := fmt.Sprintf("held by %s since %s", l.Owner, humanize.Time(time.Now().Add(-age)))
	if l.Stale {
		return r.styles.Warning.Render("stale, " + desc + " (amandocs unlock to clear)")
	}
	return r.styles.Active.Render(desc)
}

func displayScope(scope string) string {
	if scope == "" {
		return "/"
	}
	return scope
}

// FormatBytes formats bytes in IEC units, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
