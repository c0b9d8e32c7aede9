package model

import "time"

const OrganizationTableName = "organizations"

// Organization owns projects and build servers. Each organization carries
// at most one SSH keypair; the private key is stored AES-GCM encrypted.
type Organization struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	DisplayName string `gorm:"size:128" json:"display_name"`
	Description string `gorm:"type:text" json:"description"`

	PublicKey  string `gorm:"type:text" json:"-"`
	PrivateKey string `gorm:"type:text" json:"-"` // encrypted at rest

	CreatedBy string    `gorm:"size:36;not null;index" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Organization) TableName() string {
	return OrganizationTableName
}

// HasSSHKey reports whether a keypair has been generated.
func (o *Organization) HasSSHKey() bool {
	return o.PublicKey != "" && o.PrivateKey != ""
}
