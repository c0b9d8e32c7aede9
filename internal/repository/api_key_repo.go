package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

type APIKeyRepository interface {
	Create(key *model.APIKey) error
	FindByHash(hash string) (*model.APIKey, error)
	ListByUser(userID string) ([]*model.APIKey, error)
	TouchLastUsed(id string) error
	DeleteByName(userID, name string) error
}

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(key *model.APIKey) error {
	if err := r.db.Create(key).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create api key", err)
	}
	return nil
}

func (r *apiKeyRepository) FindByHash(hash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.Where("hash = ?", hash).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query api key", err)
	}
	return &key, nil
}

func (r *apiKeyRepository) ListByUser(userID string) ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&keys).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list api keys", err)
	}
	return keys, nil
}

func (r *apiKeyRepository) TouchLastUsed(id string) error {
	now := time.Now()
	if err := r.db.Model(&model.APIKey{}).Where("id = ?", id).
		Update("last_used_at", now).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update api key", err)
	}
	return nil
}

func (r *apiKeyRepository) DeleteByName(userID, name string) error {
	result := r.db.Where("user_id = ? AND name = ?", userID, name).Delete(&model.APIKey{})
	if result.Error != nil {
		return responses.Wrap(responses.CodeDatabaseError, "delete api key", result.Error)
	}
	if result.RowsAffected == 0 {
		return responses.ErrRecordNotFound
	}
	return nil
}
