package models

import "time"

// Profile is a named, optionally password-protected user context. All
// persisted data and the encryption key are scoped to one profile.
type Profile struct {
	ID        string
	Name      string
	Protected bool
	// VerifyToken is the fixed plaintext token encrypted with the profile key
	// at creation time; login decrypts and compares it.
	VerifyToken string
	// Salt feeds key derivation for password-protected profiles.
	Salt      string
	CreatedAt time.Time
}

// WorkspaceState captures the open editor surface for one profile.
type WorkspaceState struct {
	ProfileID           string         `json:"profileId"`
	Tabs                []WorkspaceTab `json:"tabs"`
	ActiveTabID         string         `json:"activeTabId"`
	CurrentDatabase     string         `json:"currentDatabase"`
	CurrentConnectionID string         `json:"currentConnectionId"`
}

type WorkspaceTab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Query string `json:"query"`
}

// AIProviderConfig holds one provider entry. APIKey is encrypted at rest.
type AIProviderConfig struct {
	ID       string            `json:"id"`
	Provider string            `json:"provider"`
	Model    string            `json:"model"`
	APIKey   string            `json:"apiKey"`
	Options  map[string]string `json:"options,omitempty"`
}

// SavedQuery is a named query a user chose to keep outside the history ledger.
type SavedQuery struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"createdAt"`
}

// Setting is one free-form key/value pair scoped to a profile.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
