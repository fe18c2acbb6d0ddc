package source

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// DefaultMaxFetchBytes caps a single download.
const DefaultMaxFetchBytes int64 = 100 * 1024 * 1024

// LocalFS serves a directory tree as a remote store. Logical paths are
// slash-separated and rooted at "/", so "/docs/a.pdf" is <root>/docs/a.pdf.
type LocalFS struct {
	root     string
	maxBytes int64
}

// NewLocalFS creates a source over root, which must be an existing directory.
func NewLocalFS(root string) (*LocalFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, amanerrors.ConfigError("invalid source root", err).WithDetail("root", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, amanerrors.ConfigError("source root not found", err).WithDetail("root", abs)
	}
	if !info.IsDir() {
		return nil, amanerrors.ConfigError("source root is not a directory", nil).WithDetail("root", abs)
	}
	return &LocalFS{root: abs, maxBytes: DefaultMaxFetchBytes}, nil
}

// Name identifies the source in logs.
func (l *LocalFS) Name() string { return "local:" + l.root }

// Root returns the absolute directory backing the source.
func (l *LocalFS) Root() string { return l.root }

// resolve maps a logical path onto disk, refusing anything that escapes root.
func (l *LocalFS) resolve(logical string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(logical))
	p := filepath.Join(l.root, filepath.FromSlash(clean))
	if p != l.root && !strings.HasPrefix(p, l.root+string(filepath.Separator)) {
		return "", amanerrors.New(amanerrors.ErrCodeInvalidPath, "path escapes source root", nil).
			WithDetail("path", logical)
	}
	return p, nil
}

func joinLogical(folder, name string) string {
	return path.Join("/", folder, name)
}

// ListFiles returns the supported files directly inside folder, by name.
func (l *LocalFS) ListFiles(ctx context.Context, folder string) ([]FileEntry, error) {
	entries, err := l.readDir(ctx, folder)
	if err != nil {
		return nil, err
	}

	var out []FileEntry
	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() || !IsSupported(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed while listing
		}
		fe, err := NewFileEntry(e.Name(), joinLogical(folder, e.Name()), info.Size(), FormatModified(info.ModTime()))
		if err != nil {
			return nil, err
		}
		out = append(out, fe)
	}
	return out, nil
}

// ListSubfolders returns the directories directly inside folder, by name.
// Hidden directories are not reported.
func (l *LocalFS) ListSubfolders(ctx context.Context, folder string) ([]Folder, error) {
	entries, err := l.readDir(ctx, folder)
	if err != nil {
		return nil, err
	}

	var out []Folder
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		f, err := NewFolder(e.Name(), joinLogical(folder, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (l *LocalFS) readDir(ctx context.Context, folder string) ([]os.DirEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := l.resolve(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, amanerrors.ListError(folder, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// Fetch reads the file at filePath.
func (l *LocalFS) Fetch(ctx context.Context, filePath string) FetchResult {
	if err := ctx.Err(); err != nil {
		return FetchResult{Err: err}
	}
	p, err := l.resolve(filePath)
	if err != nil {
		return FetchResult{Err: err}
	}
	info, err := os.Stat(p)
	if err != nil {
		return FetchResult{Err: amanerrors.FetchError(filePath, err)}
	}
	if info.Size() > l.maxBytes {
		return FetchResult{Err: amanerrors.New(amanerrors.ErrCodeFileTooLarge, "file exceeds fetch limit", nil).
			WithDetail("path", filePath)}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return FetchResult{Err: amanerrors.FetchError(filePath, err)}
	}
	return FetchResult{Data: data}
}
