package testutil

import (
	"sc-go/internal/sc"
	"sc-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() sc.Vault {
	return vault.NewMemoryVault("test-vault")
}
