package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IsURL reports whether ref is an http(s) source the muxer can read directly.
func IsURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// CheckURLPrefix allows every URL when prefixes is empty.
func CheckURLPrefix(ref string, prefixes []string) error {
	if len(prefixes) == 0 {
		return nil
	}
	for _, p := range prefixes {
		if strings.HasPrefix(ref, p) {
			return nil
		}
	}
	return fmt.Errorf("source url %q is not allowed", ref)
}

// ResolveInput maps a source reference onto the filesystem. With an empty
// root the reference is used as given; otherwise it must be a relative path
// that stays inside root.
func ResolveInput(root, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty source reference")
	}
	if IsURL(ref) {
		return ref, nil
	}
	if root == "" {
		return ref, nil
	}
	if filepath.IsAbs(ref) {
		return "", fmt.Errorf("source %q must be relative to the input directory", ref)
	}
	cleaned := filepath.Clean(ref)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("source %q escapes the input directory", ref)
	}
	return filepath.Join(root, cleaned), nil
}
