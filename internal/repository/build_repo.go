package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

type BuildRepository interface {
	CreateBatch(builds []*model.Build) error
	FindByID(id string) (*model.Build, error)
	ListByEvaluation(evaluationID string) ([]*model.Build, error)
	ListQueued(limit int) ([]*model.Build, error)
	ListNonTerminalByEvaluation(evaluationID string) ([]*model.Build, error)
	CountActiveByServer(serverID string) (int64, error)
	// Assign claims a queued build for a server (CAS Queued -> Assigned).
	Assign(buildID, serverID string) (bool, error)
	// UpdateStatus is a compare-and-swap on the status column.
	UpdateStatus(id string, from, to int8) (bool, error)
	// Abort moves a non-terminal build to Aborted and clears the server
	// assignment. Terminal builds are left untouched (first writer wins).
	Abort(id string) (bool, error)
	// Reassign moves an assigned build to a different server without
	// changing its status.
	Reassign(id, serverID string) (bool, error)
	AppendLog(id, chunk string) error
	SetOutput(id, outputHash string) error
	SetError(id, message string) error
	Requeue(id string) (bool, error)
	// RequeueInFlight returns every Assigned or Running build to the
	// queue, clearing server assignments. Used on startup to recover work
	// interrupted by a crash.
	RequeueInFlight() (int64, error)
}

type buildRepository struct {
	db *gorm.DB
}

func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepository{db: db}
}

func (r *buildRepository) CreateBatch(builds []*model.Build) error {
	if len(builds) == 0 {
		return nil
	}
	if err := r.db.Create(builds).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "create builds", err)
	}
	return nil
}

func (r *buildRepository) FindByID(id string) (*model.Build, error) {
	var build model.Build
	err := r.db.First(&build, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query build", err)
	}
	return &build, nil
}

func (r *buildRepository) ListByEvaluation(evaluationID string) ([]*model.Build, error) {
	var builds []*model.Build
	err := r.db.Where("evaluation_id = ?", evaluationID).Order("seq ASC").Find(&builds).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list builds", err)
	}
	return builds, nil
}

func (r *buildRepository) ListQueued(limit int) ([]*model.Build, error) {
	var builds []*model.Build
	err := r.db.Where("status = ?", constants.BuildStatusQueued).
		Order("created_at ASC, seq ASC").Limit(limit).Find(&builds).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list builds", err)
	}
	return builds, nil
}

func (r *buildRepository) ListNonTerminalByEvaluation(evaluationID string) ([]*model.Build, error) {
	var builds []*model.Build
	err := r.db.Where("evaluation_id = ? AND status < ?", evaluationID, constants.BuildStatusCompleted).
		Find(&builds).Error
	if err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "list builds", err)
	}
	return builds, nil
}

func (r *buildRepository) CountActiveByServer(serverID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Build{}).
		Where("server_id = ? AND status IN ?", serverID,
			[]int8{constants.BuildStatusAssigned, constants.BuildStatusRunning}).
		Count(&count).Error
	if err != nil {
		return 0, responses.Wrap(responses.CodeDatabaseError, "count builds", err)
	}
	return count, nil
}

func (r *buildRepository) Assign(buildID, serverID string) (bool, error) {
	result := r.db.Model(&model.Build{}).
		Where("id = ? AND status = ?", buildID, constants.BuildStatusQueued).
		Updates(map[string]interface{}{
			"status":    constants.BuildStatusAssigned,
			"server_id": serverID,
		})
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "assign build", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *buildRepository) UpdateStatus(id string, from, to int8) (bool, error) {
	result := r.db.Model(&model.Build{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "update build status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *buildRepository) Abort(id string) (bool, error) {
	result := r.db.Model(&model.Build{}).
		Where("id = ? AND status < ?", id, constants.BuildStatusCompleted).
		Updates(map[string]interface{}{
			"status":    constants.BuildStatusAborted,
			"server_id": nil,
		})
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "abort build", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *buildRepository) Reassign(id, serverID string) (bool, error) {
	result := r.db.Model(&model.Build{}).
		Where("id = ? AND status = ?", id, constants.BuildStatusAssigned).
		Update("server_id", serverID)
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "reassign build", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *buildRepository) AppendLog(id, chunk string) error {
	if err := r.db.Model(&model.Build{}).Where("id = ?", id).
		Update("log", gorm.Expr("CONCAT(log, ?)", chunk)).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "append build log", err)
	}
	return nil
}

func (r *buildRepository) SetOutput(id, outputHash string) error {
	if err := r.db.Model(&model.Build{}).Where("id = ?", id).
		Update("output_hash", outputHash).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update build output", err)
	}
	return nil
}

func (r *buildRepository) SetError(id, message string) error {
	if err := r.db.Model(&model.Build{}).Where("id = ?", id).
		Update("error", message).Error; err != nil {
		return responses.Wrap(responses.CodeDatabaseError, "update build", err)
	}
	return nil
}

func (r *buildRepository) RequeueInFlight() (int64, error) {
	result := r.db.Model(&model.Build{}).
		Where("status IN ?", []int8{constants.BuildStatusAssigned, constants.BuildStatusRunning}).
		Updates(map[string]interface{}{
			"status":    constants.BuildStatusQueued,
			"server_id": nil,
		})
	if result.Error != nil {
		return 0, responses.Wrap(responses.CodeDatabaseError, "requeue builds", result.Error)
	}
	return result.RowsAffected, nil
}

// Requeue returns an assigned build to the queue after a failed dispatch.
func (r *buildRepository) Requeue(id string) (bool, error) {
	result := r.db.Model(&model.Build{}).
		Where("id = ? AND status = ?", id, constants.BuildStatusAssigned).
		Updates(map[string]interface{}{
			"status":    constants.BuildStatusQueued,
			"server_id": nil,
		})
	if result.Error != nil {
		return false, responses.Wrap(responses.CodeDatabaseError, "requeue build", result.Error)
	}
	return result.RowsAffected > 0, nil
}
