package custody

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

var (
	// ErrDecryptionFailed is returned whenever a ciphertext/nonce pair does
	// not authenticate: wrong vault key, corrupted record, or tampering.
	// It is always a hard failure; the vault never returns unverified bytes.
	ErrDecryptionFailed = errors.New("custody: decryption failed")

	ErrEncryptionFailed = errors.New("custody: encryption failed")
)

// Vault encrypts and decrypts private key material with AES-256-GCM. The
// cipher key is derived once from the configured passphrase; the GCM tag is
// appended to the ciphertext so tampering surfaces on decrypt.
type Vault struct {
	aead cipher.AEAD
}

// NewVault derives the vault key from the passphrase via SHA-256.
func NewVault(passphrase string) (*Vault, error) {
	key := sha256.Sum256([]byte(passphrase))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals the plaintext under a fresh random nonce. Both return values
// are hex encoded for storage.
func (v *Vault) Encrypt(plaintext []byte) (ciphertext, nonce string, err error) {
	nonceBytes := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonceBytes); err != nil {
		return "", "", ErrEncryptionFailed
	}

	sealed := v.aead.Seal(nil, nonceBytes, plaintext, nil)
	return hex.EncodeToString(sealed), hex.EncodeToString(nonceBytes), nil
}

// Decrypt opens a hex ciphertext/nonce pair produced by Encrypt.
func (v *Vault) Decrypt(ciphertext, nonce string) ([]byte, error) {
	sealed, err := hex.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	nonceBytes, err := hex.DecodeString(nonce)
	if err != nil || len(nonceBytes) != v.aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := v.aead.Open(nil, nonceBytes, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
