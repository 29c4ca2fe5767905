package utils

import (
	"net/url"
	"path"
	"strings"
)

// FixAndCleanPath makes p absolute and cleaned, "/" for empty input.
func FixAndCleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// EncodePath escapes every segment of p for use inside a URL path.
func EncodePath(p string) string {
	seg := strings.Split(p, "/")
	for i := range seg {
		seg[i] = url.PathEscape(seg[i])
	}
	return strings.Join(seg, "/")
}
