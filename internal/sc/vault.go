package sc

import "io"

// Vault stores archived backups. Keys are slash-separated names such as
// "backups/op_3_20240115103000.tar.zst".
type Vault interface {
	// PutContent stores size bytes read from r under key, replacing any
	// previous content.
	PutContent(key string, r io.Reader, size int64) error

	// GetContent writes the content stored under key to w.
	GetContent(key string, w io.Writer) error

	// ListContent returns the keys that start with prefix, sorted.
	ListContent(prefix string) ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
