package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/querydeck/querydeck/pkg/crypto"
)

// FieldCipher encrypts and decrypts sensitive repository fields with the
// owning profile's key. The key lives in the keystore, apart from the data it
// protects.
type FieldCipher struct {
	log *zap.SugaredLogger
	ks  *crypto.Keystore
}

func NewFieldCipher(ks *crypto.Keystore) *FieldCipher {
	return &FieldCipher{log: zap.S().Named("store"), ks: ks}
}

// Seal encrypts one field. Empty plaintext stays empty.
func (c *FieldCipher) Seal(profileID, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := c.ks.Get(profileID)
	if err != nil {
		return "", err
	}
	if key == nil {
		return "", fmt.Errorf("no encryption key for profile %s", profileID)
	}
	return crypto.Encrypt(plaintext, key)
}

// Open decrypts one field. A decryption failure is recovered locally: it is
// logged and the field resolves to empty, so one bad record cannot abort the
// read of the others.
func (c *FieldCipher) Open(profileID, envelope string) string {
	if envelope == "" {
		return ""
	}
	key, err := c.ks.Get(profileID)
	if err != nil || key == nil {
		c.log.Warnw("missing encryption key, dropping sensitive field", "profile", profileID, "error", err)
		return ""
	}
	plaintext, err := crypto.Decrypt(envelope, key)
	if err != nil {
		c.log.Warnw("failed to decrypt field, dropping it", "profile", profileID, "error", err)
		return ""
	}
	return plaintext
}
