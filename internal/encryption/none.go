package encryption

import (
	"fmt"
	"io"

	"sc-go/internal/sc"
)

// NoneEncryptor stores archives in plaintext. Backups already sit unencrypted
// in the backup root, so this is the default.
type NoneEncryptor struct{}

var _ sc.Encryptor = NoneEncryptor{}

func (NoneEncryptor) Setup(string) error { return nil }

func (NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (NoneEncryptor) Unlock(string) (sc.DecryptionContext, error) { return plaintext{}, nil }

func (NoneEncryptor) IsConfigured() bool { return true }

type plaintext struct{}

func (plaintext) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
