// Package crypto implements symmetric encryption for profile-scoped secrets:
// PBKDF2 key derivation, AES-256-GCM envelopes and the profile key store.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

const (
	keyLen     = 32
	iterations = 100_000
)

// verifyToken is the fixed plaintext encrypted at profile creation and
// decrypted at login to verify the password-derived key.
const verifyToken = "querydeck-profile-verify-v1"

// DeriveKey derives a 32-byte key from a password and salt using
// PBKDF2-SHA256. Deterministic for a fixed (password, salt) pair.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
}

// GenerateKey returns a random 32-byte key for password-less profiles.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// GenerateSalt returns a random 16-byte PBKDF2 salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns base64(nonce || ciphertext). Two calls with identical inputs yield
// different envelopes.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("invalid key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64(nonce || ciphertext) envelope. A wrong key or a
// corrupted envelope returns an error.
func Decrypt(envelope string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("invalid envelope encoding: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("invalid key: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("envelope too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plaintext), nil
}

// NewVerifyToken encrypts the fixed verification token with the given key.
// Stored on the profile at creation time.
func NewVerifyToken(key []byte) (string, error) {
	return Encrypt(verifyToken, key)
}

// VerifyKey decrypts a stored verification token and compares it against the
// fixed plaintext. Decrypt failures and mismatches are reported uniformly as
// an incorrect password so the failure mode does not leak.
func VerifyKey(storedToken string, key []byte) error {
	plain, err := Decrypt(storedToken, key)
	if err != nil {
		return srvErrors.NewIncorrectPasswordError()
	}
	if subtle.ConstantTimeCompare([]byte(plain), []byte(verifyToken)) != 1 {
		return srvErrors.NewIncorrectPasswordError()
	}
	return nil
}
