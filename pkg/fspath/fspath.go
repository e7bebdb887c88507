// SPDX-License-Identifier: MPL-2.0

// Package fspath normalizes the paths that appear in manifests and import
// maps. Paths are resolved against the directory of the manifest that
// declared them and rewritten relative to the project root, always using
// forward slashes so the generated import map is identical on every OS.
package fspath

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ParentMarker is prepended to root-relative paths when they are written to
// the import map, which lives one directory below the project root.
const ParentMarker = "../"

// remotePrefixes are the specifier prefixes that refer to a registry or URL
// rather than a local file. Such specifiers are never rewritten.
var remotePrefixes = []string{"http", "jsr:", "npm:"}

// IsRemote reports whether p is a remote specifier (prefix "http", "jsr:"
// or "npm:").
func IsRemote(p string) bool {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Resolve joins target onto baseDir, normalizes "." and ".." segments and
// returns the result relative to root in forward-slash form. root and baseDir
// must be absolute. A trailing slash on target is kept, since import maps use
// it to map whole directory prefixes.
func Resolve(root, baseDir, target string) string {
	joined := filepath.Join(baseDir, filepath.FromSlash(target))
	rel, err := filepath.Rel(root, joined)
	if err != nil {
		// Different volumes on Windows; nothing relative to express.
		rel = joined
	}
	out := filepath.ToSlash(rel)
	if hasTrailingSlash(target) && !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out
}

// ToOutput converts a root-relative path into the form written to the import
// map. Remote specifiers and absolute paths are returned verbatim; anything
// else gets ParentMarker.
func ToOutput(p string) string {
	if IsRemote(p) || path.IsAbs(p) || filepath.IsAbs(p) {
		return p
	}
	out := path.Join(ParentMarker, p)
	if hasTrailingSlash(p) && !strings.HasSuffix(out, "/") {
		out += "/"
	}
	return out
}

// Canonical returns the absolute, symlink-resolved form of p. Paths that do
// not exist yet are returned in absolute form only.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	if resolved, evalErr := filepath.EvalSymlinks(abs); evalErr == nil {
		return resolved, nil
	}
	return abs, nil
}

func hasTrailingSlash(p string) bool {
	return strings.HasSuffix(p, "/") || strings.HasSuffix(p, `\`)
}
