package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

type ProjectRepository interface {
	Create(project *model.Project) error
	FindByID(id string) (*model.Project, error)
	FindByName(organizationID, name string) (*model.Project, error)
	ListByOrganization(organizationID string) ([]*model.Project, error)
	Update(project *model.Project) error
	SetLastEvaluation(projectID, evaluationID string) error
	Delete(id string) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(project *model.Project) error {
	if err := r.db.Create(project).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create project", err)
	}
	return nil
}

func (r *projectRepository) FindByID(id string) (*model.Project, error) {
	var project model.Project
	err := r.db.First(&project, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query project", err)
	}
	return &project, nil
}

func (r *projectRepository) FindByName(organizationID, name string) (*model.Project, error) {
	var project model.Project
	err := r.db.Where("organization_id = ? AND name = ?", organizationID, name).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query project", err)
	}
	return &project, nil
}

func (r *projectRepository) ListByOrganization(organizationID string) ([]*model.Project, error) {
	var projects []*model.Project
	err := r.db.Where("organization_id = ?", organizationID).Order("name ASC").Find(&projects).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list projects", err)
	}
	return projects, nil
}

func (r *projectRepository) Update(project *model.Project) error {
	if err := r.db.Save(project).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update project", err)
	}
	return nil
}

func (r *projectRepository) SetLastEvaluation(projectID, evaluationID string) error {
	if err := r.db.Model(&model.Project{}).Where("id = ?", projectID).
		Update("last_evaluation_id", evaluationID).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update project", err)
	}
	return nil
}

func (r *projectRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var evaluationIDs []string
		if err := tx.Model(&model.Evaluation{}).Where("project_id = ?", id).
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
		if err := tx.Delete(&model.Project{}, "id = ?", id).Error; err != nil {
			return responses.Wrap(responses.CodeDatabaseError, "delete project", err)
		}
		return nil
	})
}
