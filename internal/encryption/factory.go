package encryption

import (
	"fmt"

	"sc-go/internal/config"
	"sc-go/internal/sc"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (sc.Encryptor, error) {
	switch cfg.Type {
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "none", "":
		return NoneEncryptor{}, nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}

// Suffix is appended to archive names produced with e.
func Suffix(e sc.Encryptor) string {
	switch e.(type) {
	case *AgeEncryptor:
		return ".age"
	case *TestEncryptor:
		return ".enc"
	default:
		return ""
	}
}

// NeedsPassphrase reports whether Unlock uses its passphrase.
func NeedsPassphrase(e sc.Encryptor) bool {
	_, ok := e.(*AgeEncryptor)
	return ok
}
