package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

type CacheRepository interface {
	Create(cache *model.Cache) error
	FindByID(id string) (*model.Cache, error)
	FindByName(name string) (*model.Cache, error)
	List() ([]*model.Cache, error)
	// ListSubscribed returns an organization's active caches ordered by
	// priority descending; blob lookups probe them in this order.
	ListSubscribed(organizationID string) ([]*model.Cache, error)
	Update(cache *model.Cache) error
	Delete(id string) error
	Subscribe(sub *model.OrganizationCache) error
	Unsubscribe(organizationID, cacheID string) error
	// AddBlob records blob membership; adding the same hash twice is a
	// no-op.
	AddBlob(blob *model.CacheBlob) error
	HasBlob(cacheID, hash string) (bool, error)
}

type cacheRepository struct {
	db *gorm.DB
}

func NewCacheRepository(db *gorm.DB) CacheRepository {
	return &cacheRepository{db: db}
}

func (r *cacheRepository) Create(cache *model.Cache) error {
	if err := r.db.Create(cache).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create cache", err)
	}
	return nil
}

func (r *cacheRepository) FindByID(id string) (*model.Cache, error) {
	var cache model.Cache
	err := r.db.First(&cache, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query cache", err)
	}
	return &cache, nil
}

func (r *cacheRepository) FindByName(name string) (*model.Cache, error) {
	var cache model.Cache
	err := r.db.Where("name = ?", name).First(&cache).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query cache", err)
	}
	return &cache, nil
}

func (r *cacheRepository) List() ([]*model.Cache, error) {
	var caches []*model.Cache
	err := r.db.Order("priority DESC, name ASC").Find(&caches).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list caches", err)
	}
	return caches, nil
}

func (r *cacheRepository) ListSubscribed(organizationID string) ([]*model.Cache, error) {
	var caches []*model.Cache
	err := r.db.
		Joins("JOIN organization_caches ON organization_caches.cache_id = caches.id").
		Where("organization_caches.organization_id = ? AND caches.active = ?", organizationID, true).
		Order("caches.priority DESC, caches.name ASC").
		Find(&caches).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list subscribed caches", err)
	}
	return caches, nil
}

func (r *cacheRepository) Update(cache *model.Cache) error {
	if err := r.db.Save(cache).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update cache", err)
	}
	return nil
}

func (r *cacheRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cache_id = ?", id).Delete(&model.OrganizationCache{}).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete cache subscriptions", err)
		}
		if err := tx.Where("cache_id = ?", id).Delete(&model.CacheBlob{}).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete cache blobs", err)
		}
		if err := tx.Delete(&model.Cache{}, "id = ?", id).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete cache", err)
		}
		return nil
	})
}

func (r *cacheRepository) Subscribe(sub *model.OrganizationCache) error {
	if err := r.db.Create(sub).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "subscribe cache", err)
	}
	return nil
}

func (r *cacheRepository) AddBlob(blob *model.CacheBlob) error {
	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(blob).Error
	if err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "add cache blob", err)
	}
	return nil
}

func (r *cacheRepository) HasBlob(cacheID, hash string) (bool, error) {
	var count int64
	err := r.db.Model(&model.CacheBlob{}).
		Where("cache_id = ? AND hash = ?", cacheID, hash).
		Count(&count).Error
	if err != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "query cache blob", err)
	}
	return count > 0, nil
}

func (r *cacheRepository) Unsubscribe(organizationID, cacheID string) error {
	result := r.db.Where("organization_id = ? AND cache_id = ?", organizationID, cacheID).
		Delete(&model.OrganizationCache{})
	if result.Error != nil {
		return responses.Wrap(responses.CodeDatabaseError, "unsubscribe cache", result.Error)
	}
	if result.RowsAffected == 0 {
		return responses.ErrRecordNotFound
	}
	return nil
}
