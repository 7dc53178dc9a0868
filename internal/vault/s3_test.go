package vault

import (
	"context"
	"testing"

	"sc-go/internal/config"
)

func newOfflineS3Vault(t *testing.T, prefix string) *S3Vault {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent")
	v, err := NewS3Vault(context.Background(), config.VaultConfig{
		Type:              "s3",
		Name:              "offsite",
		S3Bucket:          "bucket",
		S3Prefix:          prefix,
		S3Region:          "us-east-1",
		S3Endpoint:        "http://127.0.0.1:9",
		S3AccessKeyID:     "id",
		S3SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}
	return v
}

func TestS3Vault_ObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "backups/a.tar.zst", "backups/a.tar.zst"},
		{"host1", "backups/a.tar.zst", "host1/backups/a.tar.zst"},
		{"/host1/", "backups/./a", "host1/backups/a"},
	}
	for _, tt := range tests {
		v := newOfflineS3Vault(t, tt.prefix)
		got, err := v.objectKey(tt.key)
		if err != nil {
			t.Fatalf("objectKey(%q) error = %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("objectKey(%q) with prefix %q = %q, want %q", tt.key, tt.prefix, got, tt.want)
		}
	}
}

func TestS3Vault_RejectsInvalidKeys(t *testing.T) {
	v := newOfflineS3Vault(t, "p")
	if _, err := v.objectKey("../other"); err == nil {
		t.Error("objectKey() expected error for key escaping the prefix")
	}
}

func TestS3Vault_StripPrefix(t *testing.T) {
	v := newOfflineS3Vault(t, "host1")
	if got := v.stripPrefix("host1/backups/a"); got != "backups/a" {
		t.Errorf("stripPrefix() = %q, want %q", got, "backups/a")
	}
}
