package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keystore maps profile ids to their symmetric keys. Keys live in their own
// file, apart from any data they protect; the file is never written next to
// the database it unlocks.
type Keystore struct {
	mu   sync.Mutex
	path string
	keys map[string]string
}

// NewKeystore loads the key file at path, creating an empty store when the
// file does not exist yet.
func NewKeystore(path string) (*Keystore, error) {
	ks := &Keystore{path: path, keys: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	if err := json.Unmarshal(raw, &ks.keys); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}
	return ks, nil
}

// Get returns the key stored for a profile, or nil when none exists.
func (ks *Keystore) Get(profileID string) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	encoded, ok := ks.keys[profileID]
	if !ok {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("corrupted key for profile %s: %w", profileID, err)
	}
	return key, nil
}

// Put stores a profile key and persists the store.
func (ks *Keystore) Put(profileID string, key []byte) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.keys[profileID] = base64.StdEncoding.EncodeToString(key)
	return ks.flush()
}

// Delete removes a profile key and persists the store.
func (ks *Keystore) Delete(profileID string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	delete(ks.keys, profileID)
	return ks.flush()
}

func (ks *Keystore) flush() error {
	raw, err := json.Marshal(ks.keys)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(ks.path), 0o700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}
	tmp := ks.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	return os.Rename(tmp, ks.path)
}
