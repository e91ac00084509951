// Package pathutil converts between the absolute paths the filesystem layer
// works with and the root-relative, slash-separated paths the analysis core
// and all user-facing output use.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or the path is already
// relative or lies outside the root.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// ToSlashRelative is ToRelative with the separators normalized to forward
// slashes, the canonical form for graph node paths on every platform.
func ToSlashRelative(absPath, rootDir string) string {
	return filepath.ToSlash(ToRelative(absPath, rootDir))
}

// ToAbsolute resolves a root-relative path back to an absolute one. Absolute
// inputs pass through unchanged.
func ToAbsolute(relPath, rootDir string) string {
	if relPath == "" || filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(rootDir, filepath.FromSlash(relPath))
}
