// Package pathutil holds request path checks shared by handlers that map
// URLs onto filesystems.
package pathutil

import (
	"io/fs"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// FSName turns a URL path into a name for fs.FS lookups. It rejects
// traversal, NUL, backslashes, empty segments and hidden segments.
func FSName(urlPath string) (string, bool) {
	p := strings.TrimPrefix(urlPath, "/")
	if p == "" || strings.ContainsAny(p, "\x00\\") || HasDotSegments(p) {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	if !fs.ValidPath(p) {
		return "", false
	}
	return p, true
}
