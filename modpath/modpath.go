// Package modpath resolves css module keys. Keys are always posix-style so
// generated mappings are the same whatever host produced them.
package modpath

import "strings"

// Join resolves relative path against the directory of base.
//
// Only leading "../" segments of relative are normalized, each one removing a
// trailing directory from base. Single dots and ".." segments in the middle of
// either path are kept as is. Both paths are expected to use forward slashes,
// backslash is not treated as a separator.
func Join(base, relative string) string {
	base = dir(base)
	for strings.HasPrefix(relative, "../") {
		base = dir(strings.TrimSuffix(base, "/"))
		relative = relative[len("../"):]
	}
	return base + relative
}

// NormalizeForHost converts host-style separators to forward slashes when
// path was produced on a host which uses backslash separators.
func NormalizeForHost(path string, windowsHost bool) string {
	if !windowsHost {
		return path
	}
	return strings.ReplaceAll(path, `\`, "/")
}

// dir drops everything after the last slash, keeping the slash itself.
func dir(path string) string {
	return path[:strings.LastIndexByte(path, '/')+1]
}
