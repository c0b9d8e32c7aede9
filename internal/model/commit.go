package model

import "time"

const CommitTableName = "commits"

// Commit records repository metadata at a fixed revision. Immutable once
// written; evaluations reference it by ID.
type Commit struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	Hash    string `gorm:"size:64;not null;uniqueIndex" json:"hash"`
	Author  string `gorm:"size:128" json:"author"`
	Message string `gorm:"type:text" json:"message"`

	CreatedAt time.Time `json:"created_at"`
}

func (Commit) TableName() string {
	return CommitTableName
}
