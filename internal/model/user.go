package model

import "time"

const UserTableName = "users"

// User is an account that can own organizations and API keys.
type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Username string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Name     string `gorm:"size:128" json:"name"`
	Email    string `gorm:"size:255;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // bcrypt hash

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return UserTableName
}
