// Package keymanager 负责生成后端 API Key 的加解密
package keymanager

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	keySize   = 32
	nonceSize = 24
)

// 固定盐：口令只用于派生本服务的对称密钥
var salt = []byte("z-novel-copilot/keymanager/v1")

var (
	ErrEmptyPassphrase = errors.New("keymanager: empty passphrase")
	ErrMalformed       = errors.New("keymanager: malformed ciphertext")
	ErrDecrypt         = errors.New("keymanager: decryption failed")
)

// KeyManager secretbox 加解密
type KeyManager struct {
	key [keySize]byte
}

// New 从口令派生密钥（scrypt N=32768, r=8, p=1）
func New(passphrase string) (*KeyManager, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	derived, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, fmt.Errorf("keymanager: derive key: %w", err)
	}
	km := &KeyManager{}
	copy(km.key[:], derived)
	return km, nil
}

// Encrypt 返回 base64(nonce || box)
func (k *KeyManager) Encrypt(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("keymanager: read nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &k.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 Encrypt 的输出
func (k *KeyManager) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrMalformed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &k.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
