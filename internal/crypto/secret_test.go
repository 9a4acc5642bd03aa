package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptSecret_RoundTrip(t *testing.T) {
	secret := []byte("latoken-api-secret-value")

	blob, err := EncryptSecret(secret, "hunter2")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	if bytes.Contains(blob, secret) {
		t.Fatal("ciphertext blob contains the plaintext secret")
	}

	got, err := DecryptSecret(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptSecret: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("round trip = %q, want %q", got, secret)
	}
}

func TestDecryptSecret_WrongPassword(t *testing.T) {
	blob, err := EncryptSecret([]byte("secret"), "correct")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}

	if _, err := DecryptSecret(blob, "wrong"); err == nil {
		t.Error("expected error decrypting with wrong password")
	}
}

func TestEncryptSecret_Validation(t *testing.T) {
	if _, err := EncryptSecret([]byte("s"), ""); err == nil {
		t.Error("expected error for empty password")
	}
	if _, err := EncryptSecret(nil, "pw"); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestLoadSecret_RawTakesPrecedence(t *testing.T) {
	got, err := LoadSecret(SecretConfig{RawSecret: "raw-value", EncryptedSecretPath: "/does/not/exist"})
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(got) != "raw-value" {
		t.Errorf("LoadSecret = %q, want raw-value", got)
	}
}

func TestLoadSecret_FromEncryptedFile(t *testing.T) {
	blob, err := EncryptSecret([]byte("file-secret"), "pw")
	if err != nil {
		t.Fatalf("EncryptSecret: %v", err)
	}
	path := filepath.Join(t.TempDir(), "secret.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	got, err := LoadSecret(SecretConfig{EncryptedSecretPath: path, SecretPassword: "pw"})
	if err != nil {
		t.Fatalf("LoadSecret: %v", err)
	}
	if string(got) != "file-secret" {
		t.Errorf("LoadSecret = %q, want file-secret", got)
	}
}

func TestLoadSecret_NoSource(t *testing.T) {
	if _, err := LoadSecret(SecretConfig{}); err == nil {
		t.Error("expected error when no secret source is configured")
	}
}
