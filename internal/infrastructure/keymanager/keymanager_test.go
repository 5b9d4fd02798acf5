package keymanager

import (
	"errors"
	"testing"
)

func TestKeyManager_EncryptDecrypt(t *testing.T) {
	km, err := New("passphrase")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c1, err := km.Encrypt("sk-secret")
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	c2, _ := km.Encrypt("sk-secret")
	if c1 == c2 {
		t.Fatal("ciphertexts should differ by nonce")
	}

	plain, err := km.Decrypt(c1)
	if err != nil || plain != "sk-secret" {
		t.Fatalf("Decrypt() = %q, %v", plain, err)
	}
}

func TestKeyManager_WrongKeyFails(t *testing.T) {
	a, _ := New("a")
	b, _ := New("b")

	c, _ := a.Encrypt("sk-secret")
	if _, err := b.Decrypt(c); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Decrypt() error = %v, want ErrDecrypt", err)
	}
	if _, err := a.Decrypt("not base64!"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Decrypt(garbage) error = %v, want ErrMalformed", err)
	}
}

func TestNew_EmptyPassphrase(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrEmptyPassphrase) {
		t.Fatalf("New(\"\") error = %v", err)
	}
}
