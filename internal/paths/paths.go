// Package paths provides path canonicalization and containment checks
// used by the file-discovery walk and by the editor tool's two-root
// security boundary.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize resolves symlinks in absolutePath and returns it as a
// root-relative path using forward slashes. If the path does not yet
// exist (e.g. a file about to be created), its nearest existing
// ancestor is resolved and the remaining elements are appended; a
// dangling symlink is an error.
func Canonicalize(absolutePath, root string) (string, error) {
	resolved, err := resolveOrSelf(absolutePath)
	if err != nil {
		return "", err
	}
	rootResolved, err := resolveOrSelf(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func resolveOrSelf(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			if _, lerr := os.Lstat(path); lerr == nil {
				return "", err
			}
			parent := filepath.Dir(path)
			if parent == path {
				return path, nil
			}
			resolvedParent, perr := resolveOrSelf(parent)
			if perr != nil {
				return "", perr
			}
			return filepath.Join(resolvedParent, filepath.Base(path)), nil
		}
		return "", err
	}
	return resolved, nil
}

// IsWithin reports whether path, once canonicalized against root,
// lexically stays inside root (does not escape via "..").
func IsWithin(path, root string) bool {
	canonical, err := Canonicalize(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// Join builds an absolute path from root and a root-relative
// canonical path, accepting either slash convention in canonicalPath.
func Join(root, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// Normalize converts path separators to forward slashes.
func Normalize(path string) string {
	return filepath.ToSlash(path)
}
