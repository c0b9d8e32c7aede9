package model

import "gorm.io/gorm"

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&APIKey{},
		&Organization{},
		&Project{},
		&Commit{},
		&Evaluation{},
		&Build{},
		&Server{},
		&Cache{},
		&OrganizationCache{},
		&CacheBlob{},
	)
}
