package model

import "time"

const (
	CacheTableName             = "caches"
	OrganizationCacheTableName = "organization_caches"
	CacheBlobTableName         = "cache_blobs"
)

// Cache is a shared, priority-ordered, content-addressed artifact store.
// Caches are never owned by a single organization; organizations reference
// them via subscription.
type Cache struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	DisplayName string `gorm:"size:128" json:"display_name"`
	Description string `gorm:"type:text" json:"description"`

	Priority int  `gorm:"not null;default:0" json:"priority"` // higher = preferred
	Active   bool `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Cache) TableName() string {
	return CacheTableName
}

// CacheBlob records that a cache holds the blob with the given content
// hash. Blob bytes are deduplicated in the store; membership is per cache.
type CacheBlob struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	CacheID string `gorm:"size:36;not null;uniqueIndex:uk_cache_blob" json:"cache_id"`
	Hash    string `gorm:"size:64;not null;uniqueIndex:uk_cache_blob;index" json:"hash"`

	CreatedAt time.Time `json:"created_at"`
}

func (CacheBlob) TableName() string {
	return CacheBlobTableName
}

// OrganizationCache subscribes an organization to a cache.
type OrganizationCache struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string `gorm:"size:36;not null;uniqueIndex:uk_org_cache" json:"organization_id"`
	CacheID        string `gorm:"size:36;not null;uniqueIndex:uk_org_cache" json:"cache_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (OrganizationCache) TableName() string {
	return OrganizationCacheTableName
}
