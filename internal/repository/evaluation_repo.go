package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

type EvaluationRepository interface {
	Create(evaluation *model.Evaluation) error
	// CreateIfNoActive inserts the evaluation only if the project has no
	// non-terminal evaluation, in one statement so two concurrent submits
	// cannot both pass. Returns false when an active evaluation exists.
	CreateIfNoActive(evaluation *model.Evaluation) (bool, error)
	FindByID(id string) (*model.Evaluation, error)
	FindActiveByProject(projectID string) (*model.Evaluation, error)
	ListQueued(limit int) ([]*model.Evaluation, error)
	ListBuilding() ([]*model.Evaluation, error)
	// UpdateStatus is a compare-and-swap: the row moves from -> to only if
	// it is still in from. Returns false when another writer won the race.
	UpdateStatus(id string, from, to int8) (bool, error)
	// RequeueEvaluating returns Evaluating evaluations to the queue. Used
	// on startup to recover work interrupted by a crash.
	RequeueEvaluating() (int64, error)
	SetError(id string, message string) error
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(evaluation *model.Evaluation) error {
	if err := r.db.Create(evaluation).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create evaluation", err)
	}
	return nil
}

func (r *evaluationRepository) CreateIfNoActive(evaluation *model.Evaluation) (bool, error) {
	now := time.Now()
	evaluation.CreatedAt = now
	evaluation.UpdatedAt = now
	result := r.db.Exec(
		`INSERT INTO evaluations (id, project_id, commit_id, wildcard, status, error, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?, '', ?, ?
		 WHERE NOT EXISTS (
			SELECT 1 FROM evaluations WHERE project_id = ? AND status < ?
		 )`,
		evaluation.ID, evaluation.ProjectID, evaluation.CommitID, evaluation.Wildcard,
		evaluation.Status, now, now,
		evaluation.ProjectID, constants.EvaluationStatusCompleted)
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "create evaluation", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *evaluationRepository) FindByID(id string) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	err := r.db.First(&evaluation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query evaluation", err)
	}
	return &evaluation, nil
}

func (r *evaluationRepository) FindActiveByProject(projectID string) (*model.Evaluation, error) {
	var evaluation model.Evaluation
	err := r.db.Where("project_id = ? AND status < ?", projectID, constants.EvaluationStatusCompleted).
		First(&evaluation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query evaluation", err)
	}
	return &evaluation, nil
}

func (r *evaluationRepository) ListQueued(limit int) ([]*model.Evaluation, error) {
	var evaluations []*model.Evaluation
	err := r.db.Where("status = ?", constants.EvaluationStatusQueued).
		Order("created_at ASC").Limit(limit).Find(&evaluations).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list evaluations", err)
	}
	return evaluations, nil
}

func (r *evaluationRepository) ListBuilding() ([]*model.Evaluation, error) {
	var evaluations []*model.Evaluation
	err := r.db.Where("status = ?", constants.EvaluationStatusBuilding).
		Order("created_at ASC").Find(&evaluations).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list evaluations", err)
	}
	return evaluations, nil
}

func (r *evaluationRepository) UpdateStatus(id string, from, to int8) (bool, error) {
	result := r.db.Model(&model.Evaluation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "update evaluation status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *evaluationRepository) RequeueEvaluating() (int64, error) {
	result := r.db.Model(&model.Evaluation{}).
		Where("status = ?", constants.EvaluationStatusEvaluating).
		Update("status", constants.EvaluationStatusQueued)
	if result.Error != nil {
		return 0, responses.Wrap(responses.CodeDatabaseError, "requeue evaluations", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *evaluationRepository) SetError(id string, message string) error {
	if err := r.db.Model(&model.Evaluation{}).Where("id = ?", id).
		Update("error", message).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update evaluation", err)
	}
	return nil
}
