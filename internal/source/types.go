// Package source provides the remote file store collaborators consumed by
// the index builder: listing folders and files, fetching raw bytes, and
// turning those bytes into plain text.
//
// Records coming out of a store are validated on construction, so the
// builder never sees an entry without a name, path or modification time.
package source

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// ErrUnsupportedFormat is carried by an Extraction for formats this build
// cannot turn into text.
var ErrUnsupportedFormat = errors.New("unsupported format")

// SupportedExtensions lists the extensions the listers report, lowercase
// with the leading dot. Only formats TextExtractor can read are listed;
// legacy binary .doc and .xls are not.
var SupportedExtensions = []string{
	".pdf", ".txt", ".docx", ".xlsx",
	".md", ".csv", ".tsv", ".json", ".log",
}

var supported = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SupportedExtensions))
	for _, ext := range SupportedExtensions {
		m[ext] = struct{}{}
	}
	return m
}()

// IsSupported reports whether name has a supported extension.
func IsSupported(name string) bool {
	_, ok := supported[Ext(name)]
	return ok
}

// Ext returns the lowercase extension of name including the dot, or "".
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// FormatModified renders t the way remote stores report modification
// times: RFC 3339 in UTC, second precision.
func FormatModified(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// FileEntry is one file reported by a Lister.
type FileEntry struct {
	Name     string
	Path     string
	Size     int64
	Modified string
}

// NewFileEntry validates and builds a FileEntry.
func NewFileEntry(name, filePath string, size int64, modified string) (FileEntry, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return FileEntry{}, amanerrors.RecordError("file entry has no name").WithDetail("path", filePath)
	case strings.TrimSpace(filePath) == "":
		return FileEntry{}, amanerrors.RecordError("file entry has no path").WithDetail("name", name)
	case size < 0:
		return FileEntry{}, amanerrors.RecordError("file entry has a negative size").WithDetail("path", filePath)
	case strings.TrimSpace(modified) == "":
		return FileEntry{}, amanerrors.RecordError("file entry has no modification time").WithDetail("path", filePath)
	}
	return FileEntry{Name: name, Path: filePath, Size: size, Modified: modified}, nil
}

// Ext returns the entry's lowercase extension.
func (f FileEntry) Ext() string {
	return Ext(f.Name)
}

// Folder is one subfolder reported by a Lister.
type Folder struct {
	Name     string
	FullPath string
}

// NewFolder validates and builds a Folder.
func NewFolder(name, fullPath string) (Folder, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(fullPath) == "" {
		return Folder{}, amanerrors.RecordError("folder needs both a name and a path").
			WithDetail("name", name).WithDetail("path", fullPath)
	}
	return Folder{Name: name, FullPath: fullPath}, nil
}

// FetchResult is the outcome of a download. A failed fetch is transient:
// the builder skips the file and carries on.
type FetchResult struct {
	Data []byte
	Err  error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool { return r.Err == nil }

// Extraction is the outcome of text extraction. When Err is set, Text is
// empty.
type Extraction struct {
	Text string
	Err  error
}

// OK reports whether extraction succeeded.
func (e Extraction) OK() bool { return e.Err == nil }

// Lister enumerates a folder. Implementations report supported file types
// only.
type Lister interface {
	ListFiles(ctx context.Context, folder string) ([]FileEntry, error)
	ListSubfolders(ctx context.Context, folder string) ([]Folder, error)
}

// Fetcher downloads raw bytes.
type Fetcher interface {
	Fetch(ctx context.Context, filePath string) FetchResult
}

// Extractor turns raw bytes into plain text. It never panics.
type Extractor interface {
	ExtractText(data []byte, filename string) Extraction
}

// Source is a complete remote store.
type Source interface {
	Lister
	Fetcher
	Name() string
}
