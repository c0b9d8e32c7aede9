package dto

import (
	"time"

	"github.com/wavelens/gradient/internal/model"
)

// CreateAPIKeyRequest creates a named long-lived API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required,slug"`
}

// CreateAPIKeyResponse returns the plaintext key exactly once.
type CreateAPIKeyResponse struct {
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKeyInfo lists a key without its secret.
type APIKeyInfo struct {
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewAPIKeyInfo converts a stored key to its listing form.
func NewAPIKeyInfo(key *model.APIKey) APIKeyInfo {
	return APIKeyInfo{
		Name:       key.Name,
		LastUsedAt: key.LastUsedAt,
		CreatedAt:  key.CreatedAt,
	}
}
