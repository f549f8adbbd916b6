// Package vault encrypts provider access tokens before persistence.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the size of the AES-256 key in bytes.
	KeySize = 32
	// SaltSize is the size of the salt for PBKDF2.
	SaltSize = 16
	// NonceSize is the size of the GCM nonce.
	NonceSize = 12
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000
)

var (
	ErrInvalidKey        = errors.New("invalid encryption key: must be at least 32 characters")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed")
)

// Vault handles access-token encryption and decryption. Tokens are sealed
// with AES-256-GCM under a key derived per user, so a leaked row from one
// user cannot be decrypted with another user's key.
type Vault struct {
	masterKey []byte
}

// New creates a Vault from the process-wide secret.
// The secret must be at least 32 characters; a shorter secret is a
// configuration error and the caller should treat it as fatal.
func New(secret string) (*Vault, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidKey
	}
	// Use SHA-256 to normalize the key length
	hash := sha256.Sum256([]byte(secret))
	return &Vault{masterKey: hash[:]}, nil
}

// DeriveKey derives a unique encryption key using PBKDF2 with the user ID as salt.
func (v *Vault) DeriveKey(userID int64) []byte {
	salt := fmt.Sprintf("user:%d", userID)
	return pbkdf2.Key(v.masterKey, []byte(salt), PBKDF2Iterations, KeySize, sha256.New)
}

// Encrypt seals a raw access token for storage.
// Returns the ciphertext and the nonce used for encryption.
func (v *Vault) Encrypt(token string, userID int64) (ciphertext, nonce []byte, err error) {
	key := v.DeriveKey(userID)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, []byte(token), nil)
	return ciphertext, nonce, nil
}

// Decrypt opens a stored ciphertext back into the raw access token.
func (v *Vault) Decrypt(ciphertext, nonce []byte, userID int64) (string, error) {
	if len(ciphertext) == 0 || len(nonce) == 0 {
		return "", ErrInvalidCiphertext
	}

	key := v.DeriveKey(userID)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	if len(nonce) != gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	token, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(token), nil
}
