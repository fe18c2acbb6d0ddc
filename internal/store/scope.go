package store

import "strings"

// NormalizeScope turns a folder path into the prefix form used for
// subtree matching: trailing slash, no surrounding whitespace. The root
// ("" or "/") normalizes to "" which matches everything.
func NormalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" || scope == "/" {
		return ""
	}
	if !strings.HasSuffix(scope, "/") {
		scope += "/"
	}
	return scope
}

// InScope reports whether path lies in the subtree named by scope.
// "/docs" contains "/docs/a.pdf" and "/docs" itself but not "/docsx/a.pdf".
func InScope(path, scope string) bool {
	prefix := NormalizeScope(scope)
	if prefix == "" {
		return true
	}
	return path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix)
}
