package encryption

import (
	"bytes"
	"fmt"
	"io"

	"sc-go/internal/sc"
)

var testHeader = []byte("SCENC\x00\x00\x00")

// TestEncryptor prepends a fixed header so ciphertext differs from plaintext
// without any real cryptography.
type TestEncryptor struct {
	SetupCalled bool
}

var _ sc.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error {
	e.SetupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (sc.DecryptionContext, error) {
	if passphrase == "wrong" {
		return nil, ErrWrongPassphrase
	}
	return testDecryption{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

type testDecryption struct{}

func (testDecryption) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
