package plugins

import (
	"path/filepath"
	"time"

	scfs "sc-go/internal/fs"
)

// Names of the built-in plugins.
const (
	TempFilesName    = "Temporary Files"
	ThumbnailsName   = "Thumbnail Cache"
	BrowserCacheName = "Browser Cache"
	AptCacheName     = "APT Package Cache"
	JournalName      = "Systemd Journal Logs"
)

// TempFilesConfig reports files in ~/.cache and /tmp older than minAgeDays.
// Cache directories owned by the thumbnail and browser plugins are skipped.
func TempFilesConfig(home string, minAgeDays int, protect *scfs.ProtectMatcher) DirectoryConfig {
	cache := filepath.Join(home, ".cache")
	return DirectoryConfig{
		Name:        TempFilesName,
		Description: "Old temporary files from /tmp and ~/.cache.",
		Roots:       []string{cache, "/tmp"},
		SkipDirs:    append([]string{filepath.Join(cache, "thumbnails")}, browserCacheDirs(home)...),
		MinAge:      time.Duration(minAgeDays) * day,
		SafeAge:     14 * day,
		Priority:    60,
		Protect:     protect,
	}
}

// ThumbnailsConfig reports every file in the freedesktop thumbnail cache.
func ThumbnailsConfig(home string, protect *scfs.ProtectMatcher) DirectoryConfig {
	return DirectoryConfig{
		Name:        ThumbnailsName,
		Description: "User thumbnail cache (~/.cache/thumbnails).",
		Roots:       []string{filepath.Join(home, ".cache", "thumbnails")},
		SafeAge:     -1,
		Protect:     protect,
	}
}

// BrowserCacheConfig reports the on-disk caches of common browsers.
func BrowserCacheConfig(home string, protect *scfs.ProtectMatcher) DirectoryConfig {
	return DirectoryConfig{
		Name:        BrowserCacheName,
		Description: "Cache files from Firefox, Chrome and Chromium.",
		Roots:       browserCacheDirs(home),
		SafeAge:     -1,
		Protect:     protect,
	}
}

func browserCacheDirs(home string) []string {
	cache := filepath.Join(home, ".cache")
	return []string{
		filepath.Join(cache, "mozilla"),
		filepath.Join(cache, "google-chrome"),
		filepath.Join(cache, "chromium"),
	}
}
