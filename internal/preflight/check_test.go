package preflight

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/source"
)

// MockLister implements source.Lister with function fields.
type MockLister struct {
	FilesFn   func(ctx context.Context, folder string) ([]source.FileEntry, error)
	FoldersFn func(ctx context.Context, folder string) ([]source.Folder, error)
}

func (m *MockLister) ListFiles(ctx context.Context, folder string) ([]source.FileEntry, error) {
	if m.FilesFn == nil {
		return nil, nil
	}
	return m.FilesFn(ctx, folder)
}

func (m *MockLister) ListSubfolders(ctx context.Context, folder string) ([]source.Folder, error) {
	if m.FoldersFn == nil {
		return nil, nil
	}
	return m.FoldersFn(ctx, folder)
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail, Required: false}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	checker := New()

	tests := []struct {
		name     string
		results  []CheckResult
		expected string
	}{
		{"all pass", []CheckResult{{Status: StatusPass}, {Status: StatusPass}}, "ready"},
		{"with warnings", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"with critical failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail, Required: true}}, "failed"},
		{"with optional failure", []CheckResult{{Status: StatusPass}, {Status: StatusFail}}, "ready_with_warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.SummaryStatus(tt.results))
			assert.Equal(t, tt.expected == "failed", checker.HasCriticalFailures(tt.results))
		})
	}
}

func TestChecker_CheckWritePermissions_CreatesDir(t *testing.T) {
	// Given: a data directory that does not exist yet
	dir := filepath.Join(t.TempDir(), "data")

	// When: checking write permissions
	result := New().CheckWritePermissions(dir)

	// Then: passes and leaves no probe file behind
	assert.Equal(t, StatusPass, result.Status)
	assert.True(t, result.Required)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Skipping read-only test when running as root")
	}

	readOnly := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readOnly, 0o555))
	defer func() { _ = os.Chmod(readOnly, 0o755) }()

	result := New().CheckWritePermissions(readOnly)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_CheckDiskSpace_MissingDirUsesParent(t *testing.T) {
	result := New().CheckDiskSpace(filepath.Join(t.TempDir(), "not", "yet"))

	assert.Contains(t, result.Message, "free")
}

func TestChecker_CheckSource(t *testing.T) {
	// Given: a lister with one folder and two files at the root
	ok := &MockLister{
		FoldersFn: func(context.Context, string) ([]source.Folder, error) {
			return []source.Folder{{Name: "docs", FullPath: "/docs"}}, nil
		},
		FilesFn: func(context.Context, string) ([]source.FileEntry, error) {
			return []source.FileEntry{{Name: "a.txt"}, {Name: "b.txt"}}, nil
		},
	}

	// When: checking it
	result := New().CheckSource(context.Background(), ok)

	// Then: passes with the counts
	assert.Equal(t, StatusPass, result.Status)
	assert.Equal(t, "1 folders, 2 files at the root", result.Message)

	// When: the listing fails
	broken := &MockLister{FoldersFn: func(context.Context, string) ([]source.Folder, error) {
		return nil, amanerrors.ListError("/", errors.New("connection refused")).
			WithSuggestion("Check source.s3.endpoint")
	}}
	result = New().CheckSource(context.Background(), broken)

	// Then: fails critically and carries the suggestion
	assert.True(t, result.IsCritical())
	assert.Contains(t, result.Message, "connection refused")
	assert.Equal(t, "Check source.s3.endpoint", result.Details)

	// And a missing source fails too
	assert.True(t, New().CheckSource(context.Background(), nil).IsCritical())
}

func TestChecker_CheckEmbedder(t *testing.T) {
	// Given: no embedder
	result := New().CheckEmbedder(context.Background(), nil)

	// Then: a warning, never critical
	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.IsCritical())

	// Given: the static embedder
	result = New().CheckEmbedder(context.Background(), embed.NewStaticEmbedder(64))

	// Then: passes with model and width
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "(64 dims)")
}

func TestChecker_RunAllAndPrint(t *testing.T) {
	// Given: a writable data dir and a reachable source
	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf), WithVerbose(true))

	// When: running every check
	results := checker.RunAll(context.Background(), Target{
		DataDir: t.TempDir(),
		Source:  &MockLister{},
	})

	// Then: each check reports once, in order
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"disk_space", "write_permissions", "file_descriptors", "source", "embedder"}, names)

	// And printing lists the disabled embedder as a warning
	checker.PrintResults(results)
	out := buf.String()
	assert.Contains(t, out, "[WARN] embedder: disabled (vector search off)")
	assert.Contains(t, out, "warning(s):")
}
