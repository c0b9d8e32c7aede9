package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

type ServerRepository interface {
	Create(server *model.Server) error
	FindByID(id string) (*model.Server, error)
	FindByName(organizationID, name string) (*model.Server, error)
	ListByOrganization(organizationID string) ([]*model.Server, error)
	ListActiveByOrganization(organizationID string) ([]*model.Server, error)
	ListActive() ([]*model.Server, error)
	Update(server *model.Server) error
	SetActive(id string, active bool) error
	TouchHealthCheck(id string) error
	Delete(id string) error
}

type serverRepository struct {
	db *gorm.DB
}

func NewServerRepository(db *gorm.DB) ServerRepository {
	return &serverRepository{db: db}
}

func (r *serverRepository) Create(server *model.Server) error {
	if err := r.db.Create(server).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create server", err)
	}
	return nil
}

func (r *serverRepository) FindByID(id string) (*model.Server, error) {
	var server model.Server
	err := r.db.First(&server, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query server", err)
	}
	return &server, nil
}

func (r *serverRepository) FindByName(organizationID, name string) (*model.Server, error) {
	var server model.Server
	err := r.db.Where("organization_id = ? AND name = ?", organizationID, name).
		First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query server", err)
	}
	return &server, nil
}

func (r *serverRepository) ListByOrganization(organizationID string) ([]*model.Server, error) {
	var servers []*model.Server
	err := r.db.Where("organization_id = ?", organizationID).Order("name ASC").Find(&servers).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list servers", err)
	}
	return servers, nil
}

func (r *serverRepository) ListActiveByOrganization(organizationID string) ([]*model.Server, error) {
	var servers []*model.Server
	err := r.db.Where("organization_id = ? AND active = ?", organizationID, true).
		Order("name ASC").Find(&servers).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list servers", err)
	}
	return servers, nil
}

func (r *serverRepository) ListActive() ([]*model.Server, error) {
	var servers []*model.Server
	err := r.db.Where("active = ?", true).Find(&servers).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list servers", err)
	}
	return servers, nil
}

func (r *serverRepository) Update(server *model.Server) error {
	if err := r.db.Save(server).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update server", err)
	}
	return nil
}

func (r *serverRepository) SetActive(id string, active bool) error {
	if err := r.db.Model(&model.Server{}).Where("id = ?", id).
		Update("active", active).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update server", err)
	}
	return nil
}

func (r *serverRepository) TouchHealthCheck(id string) error {
	now := time.Now()
	if err := r.db.Model(&model.Server{}).Where("id = ?", id).
		Update("last_health_check", now).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update server", err)
	}
	return nil
}

func (r *serverRepository) Delete(id string) error {
	if err := r.db.Delete(&model.Server{}, "id = ?", id).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "delete server", err)
	}
	return nil
}
