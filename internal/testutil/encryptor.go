package testutil

import (
	"sc-go/internal/encryption"
	"sc-go/internal/sc"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() sc.Encryptor {
	return encryption.NewTestEncryptor()
}
