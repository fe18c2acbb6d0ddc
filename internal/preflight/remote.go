package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/source"
)

// probeTimeout bounds each network probe.
const probeTimeout = 10 * time.Second

// CheckSource lists the source root.
func (c *Checker) CheckSource(ctx context.Context, lister source.Lister) CheckResult {
	result := CheckResult{
		Name:     "source",
		Required: true,
	}
	if lister == nil {
		result.Status = StatusFail
		result.Message = "no source configured"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	folders, err := lister.ListSubfolders(ctx, "/")
	if err == nil {
		var files []source.FileEntry
		files, err = lister.ListFiles(ctx, "/")
		if err == nil {
			result.Status = StatusPass
			result.Message = fmt.Sprintf("%d folders, %d files at the root", len(folders), len(files))
			return result
		}
	}

	result.Status = StatusFail
	result.Message = fmt.Sprintf("cannot list the root: %v", err)
	if ae, ok := amanerrors.As(err); ok {
		result.Details = ae.Suggestion
	}
	return result
}

// CheckEmbedder embeds a probe text. Vectors are optional, so failures
// here never block a build.
func (c *Checker) CheckEmbedder(ctx context.Context, e embed.Embedder) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false,
	}
	if e == nil {
		result.Status = StatusWarn
		result.Message = "disabled (vector search off)"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	vec, err := e.Embed(ctx, "amandocs preflight")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s: %v", e.ModelName(), err)
		return result
	}
	if len(vec) != e.Dimensions() {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s returned %d dims, expected %d", e.ModelName(), len(vec), e.Dimensions())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", e.ModelName(), e.Dimensions())
	return result
}

// existingParent walks up from path to the nearest directory that exists.
func existingParent(path string) string {
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil || p == filepath.Dir(p) {
			return p
		}
	}
}
