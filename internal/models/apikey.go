package models

import "time"

// APIKey is a DevDox API key. Key holds the raw material and is populated only
// in the response to a create call.
type APIKey struct {
	ID           string     `json:"id"`
	Key          string     `json:"api_key,omitempty"`
	MaskedAPIKey string     `json:"masked_api_key"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsedAt   *time.Time `json:"last_used_at"`
}

// GetID implements the collection key.
func (k APIKey) GetID() string { return k.ID }

// Redacted returns a copy without raw key material. If the backend sent no
// masked form, one is derived from the raw key first.
func (k APIKey) Redacted() APIKey {
	if k.MaskedAPIKey == "" && k.Key != "" {
		k.MaskedAPIKey = MaskToken(k.Key)
	}
	k.Key = ""
	return k
}

// KeyValidation is the result of validating a stored credential.
type KeyValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}
