// Package pathutil provides request path matching helpers shared by middleware.
package pathutil

import "strings"

// NewPathMatcher builds a matcher that reports whether a request path matches
// any of the exact paths or any of the prefixes. Exact matches are resolved
// through a map so large skip lists stay cheap per request.
func NewPathMatcher(paths, prefixes []string) func(string) bool {
	exact := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		exact[p] = struct{}{}
	}

	return func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}
}

// ShouldSkip reports whether path matches any of skipPaths exactly or any of
// skipPrefixes as a prefix.
func ShouldSkip(path string, skipPaths, skipPrefixes []string) bool {
	for _, p := range skipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
