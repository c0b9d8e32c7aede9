package model

import "time"

const APIKeyTableName = "api_keys"

// APIKey is a long-lived bearer credential. Only the hash is stored; the
// plaintext is returned to the caller once at creation.
type APIKey struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"size:36;not null;uniqueIndex:uk_user_key" json:"user_id"`
	Name   string `gorm:"size:64;not null;uniqueIndex:uk_user_key" json:"name"`
	Hash   string `gorm:"size:64;not null;uniqueIndex" json:"-"`

	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (APIKey) TableName() string {
	return APIKeyTableName
}
