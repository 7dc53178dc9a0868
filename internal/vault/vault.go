package vault

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by GetContent for unknown keys.
var ErrNotFound = errors.New("content not found")

// cleanKey rejects keys that could escape the vault root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}
