package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

type OrganizationRepository interface {
	Create(org *model.Organization) error
	FindByID(id string) (*model.Organization, error)
	FindByName(name string) (*model.Organization, error)
	ListByUser(userID string) ([]*model.Organization, error)
	Update(org *model.Organization) error
	UpdateKeyPair(id, publicKey, privateKey string) error
	Delete(id string) error
}

type organizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(org *model.Organization) error {
	if err := r.db.Create(org).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create organization", err)
	}
	return nil
}

func (r *organizationRepository) FindByID(id string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.First(&org, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query organization", err)
	}
	return &org, nil
}

func (r *organizationRepository) FindByName(name string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.Where("name = ?", name).First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query organization", err)
	}
	return &org, nil
}

func (r *organizationRepository) ListByUser(userID string) ([]*model.Organization, error) {
	var orgs []*model.Organization
	err := r.db.Where("created_by = ?", userID).Order("name ASC").Find(&orgs).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list organizations", err)
	}
	return orgs, nil
}

func (r *organizationRepository) Update(org *model.Organization) error {
	if err := r.db.Save(org).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update organization", err)
	}
	return nil
}

// UpdateKeyPair atomically replaces the stored SSH keypair. Both columns
// change in one statement so no partial key state can persist.
func (r *organizationRepository) UpdateKeyPair(id, publicKey, privateKey string) error {
	if err := r.db.Model(&model.Organization{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"public_key":  publicKey,
			"private_key": privateKey,
		}).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update organization keypair", err)
	}
	return nil
}

// Delete removes the organization and everything it owns.
func (r *organizationRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var projectIDs []string
		if err := tx.Model(&model.Project{}).Where("organization_id = ?", id).
			Pluck("id", &projectIDs).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "query projects", err)
		}

		if len(projectIDs) > 0 {
			var evaluationIDs []string
			if err := tx.Model(&model.Evaluation{}).Where("project_id IN ?", projectIDs).
				Pluck("id", &evaluationIDs).Error; err != nil {
				return responses.Wrap(responses.CodeDatabaseError, "query evaluations", err)
			}
			if len(evaluationIDs) > 0 {
				if err := tx.Where("evaluation_id IN ?", evaluationIDs).
					Delete(&model.Build{}).Error; err != nil {
					return responses.Wrap(responses.CodeDatabaseError, "delete builds", err)
				}
				if err := tx.Where("id IN ?", evaluationIDs).
					Delete(&model.Evaluation{}).Error; err != nil {
					return responses.Wrap(responses.CodeDatabaseError, "delete evaluations", err)
				}
			}
			if err := tx.Where("id IN ?", projectIDs).Delete(&model.Project{}).Error; err != nil {
				return responses.Wrap(responses.CodeDatabaseError, "delete projects", err)
			}
		}

		if err := tx.Where("organization_id = ?", id).Delete(&model.Server{}).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete servers", err)
		}
		if err := tx.Where("organization_id = ?", id).Delete(&model.OrganizationCache{}).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete cache subscriptions", err)
		}
		if err := tx.Delete(&model.Organization{}, "id = ?", id).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete organization", err)
		}
		return nil
	})
}
