package mcp

import (
	"github.com/Aman-CERP/amandocs/internal/service"
)

// Tool names.
const (
	ToolSearch      = "search"
	ToolIndex       = "index"
	ToolIndexStatus = "index_status"
	ToolStorage     = "storage"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"text to find; Japanese and other CJK text is matched by character bigrams"`
	Scope        string `json:"scope,omitempty" jsonschema:"folder to search under, e.g. /contracts/2024; empty searches everything"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of files, default 50"`
	Verify       bool   `json:"verify,omitempty" jsonschema:"only return files whose text contains the query literally"`
	Vector       bool   `json:"vector,omitempty" jsonschema:"also return semantically similar files"`
	Refine       bool   `json:"refine,omitempty" jsonschema:"only return files that were in the previous refined result"`
	ResetSession bool   `json:"reset_session,omitempty" jsonschema:"drop the previous refined result before searching"`
}

// SearchHit is one matching file.
type SearchHit struct {
	Path   string `json:"path" jsonschema:"file path in the document store"`
	Source string `json:"source" jsonschema:"strategy that found the file: exact, verified, ngram or vector"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query        string      `json:"query"`
	Scope        string      `json:"scope,omitempty"`
	Results      []SearchHit `json:"results" jsonschema:"matching files, best strategy first"`
	NeverIndexed bool        `json:"never_indexed,omitempty" jsonschema:"true when nothing under the scope has been indexed yet"`
	Refined      bool        `json:"refined,omitempty" jsonschema:"true when results were narrowed by the previous result"`
	SessionSize  int         `json:"session_size,omitempty" jsonschema:"number of files the next refined search is limited to"`
}

// IndexInput defines the input schema for the index tool.
type IndexInput struct {
	Scope   string   `json:"scope,omitempty" jsonschema:"folder to index; empty indexes the whole store"`
	Include []string `json:"include,omitempty" jsonschema:"only index paths under these prefixes"`
	Exclude []string `json:"exclude,omitempty" jsonschema:"skip paths under these prefixes"`
}

// IndexOutput defines the output schema for the index tool.
type IndexOutput struct {
	Scope      string `json:"scope"`
	Status     string `json:"status" jsonschema:"completed, locked or cancelled"`
	Indexed    int    `json:"indexed"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	Warnings   int    `json:"warnings"`
	DurationMS int64  `json:"duration_ms"`
}

// IndexStatusInput defines the input schema for the index_status tool.
type IndexStatusInput struct {
	Scope string `json:"scope,omitempty" jsonschema:"folder to report on; empty reports the whole store"`
}

// LockOutput describes the build lock of a scope.
type LockOutput struct {
	Locked     bool    `json:"locked"`
	AgeSeconds float64 `json:"age_seconds,omitempty"`
	Stale      bool    `json:"stale,omitempty"`
	Owner      string  `json:"owner,omitempty"`
}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Source        string        `json:"source"`
	Scope         string        `json:"scope"`
	IndexedFiles  int           `json:"indexed_files"`
	VectorNodes   int           `json:"vector_nodes"`
	Embedder      string        `json:"embedder"`
	Lock          LockOutput    `json:"lock"`
	Storage       service.Sizes `json:"storage"`
	SessionActive bool          `json:"session_active"`
	SessionSize   int           `json:"session_size,omitempty"`
}

// StorageInput defines the input schema for the storage tool.
type StorageInput struct {
	Reset bool `json:"reset,omitempty" jsonschema:"delete the whole index and its vectors; cannot be undone"`
}

// StorageOutput defines the output schema for the storage tool.
type StorageOutput struct {
	Sizes      service.Sizes `json:"sizes"`
	Reset      bool          `json:"reset,omitempty"`
	FreedBytes int64         `json:"freed_bytes,omitempty"`
}
