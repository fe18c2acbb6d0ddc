package mcp

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatSearchResults formats search output as markdown.
func FormatSearchResults(out *SearchOutput) string {
	if len(out.Results) == 0 {
		msg := fmt.Sprintf("No results found for \"%s\"", out.Query)
		if out.Scope != "" {
			msg += fmt.Sprintf(" under %s", out.Scope)
		}
		if out.NeverIndexed {
			msg += ". Nothing under this folder has been indexed yet; run the index tool first."
		}
		return msg
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", out.Query)
	if out.Scope != "" {
		fmt.Fprintf(&sb, "Scope: `%s`\n\n", out.Scope)
	}
	fmt.Fprintf(&sb, "Found %d file", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	if out.Refined {
		sb.WriteString(" (refined from the previous result)")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		fmt.Fprintf(&sb, "%d. `%s` (%s)\n", i+1, r.Path, r.Source)
	}
	return sb.String()
}

// FormatIndexSummary formats a build summary as markdown.
func FormatIndexSummary(out *IndexOutput) string {
	scope := out.Scope
	if scope == "" {
		scope = "/"
	}
	switch out.Status {
	case "locked":
		return fmt.Sprintf("Another build is already indexing `%s`. Try again later or check index_status.", scope)
	case "cancelled":
		return fmt.Sprintf("Indexing `%s` was cancelled after %d of %d files.", scope, out.Indexed+out.Skipped, out.Total)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Indexed `%s`\n\n", scope)
	fmt.Fprintf(&sb, "- **Indexed:** %s\n", humanize.Comma(int64(out.Indexed)))
	fmt.Fprintf(&sb, "- **Unchanged:** %s\n", humanize.Comma(int64(out.Skipped)))
	if out.Failed > 0 {
		fmt.Fprintf(&sb, "- **Text extraction failed:** %d\n", out.Failed)
	}
	if out.Warnings > 0 {
		fmt.Fprintf(&sb, "- **Warnings:** %d\n", out.Warnings)
	}
	fmt.Fprintf(&sb, "- **Duration:** %.1fs\n", float64(out.DurationMS)/1000)
	return sb.String()
}

// FormatIndexStatus formats index status as markdown.
func FormatIndexStatus(out *IndexStatusOutput) string {
	scope := out.Scope
	if scope == "" {
		scope = "/"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Index Status for `%s`\n\n", scope)
	fmt.Fprintf(&sb, "- **Source:** %s\n", out.Source)
	fmt.Fprintf(&sb, "- **Indexed files:** %s\n", humanize.Comma(int64(out.IndexedFiles)))
	fmt.Fprintf(&sb, "- **Embedder:** %s (%s vectors)\n", out.Embedder, humanize.Comma(int64(out.VectorNodes)))

	switch {
	case out.Lock.Locked && out.Lock.Stale:
		fmt.Fprintf(&sb, "- **Lock:** stale (%.0fs old), the next build will reclaim it\n", out.Lock.AgeSeconds)
	case out.Lock.Locked:
		fmt.Fprintf(&sb, "- **Lock:** held for %.0fs", out.Lock.AgeSeconds)
		if out.Lock.Owner != "" {
			fmt.Fprintf(&sb, " by %s", out.Lock.Owner)
		}
		sb.WriteString("\n")
	default:
		sb.WriteString("- **Lock:** free\n")
	}

	fmt.Fprintf(&sb, "- **Storage:** %s\n", humanize.IBytes(uint64(out.Storage.Total)))
	if out.SessionActive {
		fmt.Fprintf(&sb, "- **Refine session:** %d files\n", out.SessionSize)
	}
	return sb.String()
}

// FormatStorage formats storage sizes as markdown.
func FormatStorage(out *StorageOutput) string {
	var sb strings.Builder
	if out.Reset {
		fmt.Fprintf(&sb, "Index reset. Freed %s.\n\n", humanize.IBytes(uint64(out.FreedBytes)))
	}
	sb.WriteString("## Storage\n\n")
	fmt.Fprintf(&sb, "- **Index:** %s\n", humanize.IBytes(uint64(out.Sizes.Primary)))
	fmt.Fprintf(&sb, "- **Write-ahead log:** %s\n", humanize.IBytes(uint64(out.Sizes.WAL+out.Sizes.SHM)))
	fmt.Fprintf(&sb, "- **Vectors:** %s\n", humanize.IBytes(uint64(out.Sizes.Vector)))
	fmt.Fprintf(&sb, "- **Total:** %s\n", humanize.IBytes(uint64(out.Sizes.Total)))
	return sb.String()
}
