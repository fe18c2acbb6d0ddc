// Package output provides consistent CLI output for the amandocs commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Fields prints label/value pairs with the values aligned.
func (w *Writer) Fields(pairs ...[2]string) {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	for _, p := range pairs {
		_, _ = fmt.Fprintf(w.out, "  %-*s  %s\n", width+1, p[0]+":", p[1])
	}
}

// Hits prints search results, one path per line with the strategy that
// found it.
func (w *Writer) Hits(query string, res *search.Result) {
	if len(res.Hits) == 0 {
		w.Statusf("🔍", "No results for %q", query)
		if res.NeverIndexed {
			w.Status("", "Nothing under this scope is indexed yet. Run 'amandocs index' first.")
		}
		return
	}

	noun := "files"
	if len(res.Hits) == 1 {
		noun = "file"
	}
	suffix := ""
	if res.Refined {
		suffix = " (refined)"
	}
	w.Statusf("🔍", "%d %s for %q%s", len(res.Hits), noun, query, suffix)

	pad := len(fmt.Sprint(len(res.Hits)))
	for i, h := range res.Hits {
		_, _ = fmt.Fprintf(w.out, "  %*d. %s  [%s]\n", pad, i+1, h.Path, h.Source)
	}
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Rule prints a horizontal separator of the given width.
func (w *Writer) Rule(width int) {
	_, _ = fmt.Fprintln(w.out, strings.Repeat("─", width))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}
