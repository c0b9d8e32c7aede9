package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

type CommitRepository interface {
	GetOrCreate(commit *model.Commit) (*model.Commit, error)
	FindByID(id string) (*model.Commit, error)
}

type commitRepository struct {
	db *gorm.DB
}

func NewCommitRepository(db *gorm.DB) CommitRepository {
	return &commitRepository{db: db}
}

// GetOrCreate returns the existing record for the commit hash, or inserts
// the given one. Commits are immutable; an existing record wins.
func (r *commitRepository) GetOrCreate(commit *model.Commit) (*model.Commit, error) {
	var existing model.Commit
	err := r.db.Where("hash = ?", commit.Hash).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, responses.Wrap(responses.CodeDatabaseError, "query commit", err)
	}

	if err := r.db.Create(commit).Error; err != nil {
		return nil, responses.Wrap(responses.CodeDatabaseError, "create commit", err)
	}
	return commit, nil
}

func (r *commitRepository) FindByID(id string) (*model.Commit, error) {
	var commit model.Commit
	err := r.db.First(&commit, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, responses.ErrRecordNotFound
		}
		return nil, responses.Wrap(responses.CodeDatabaseError, "query commit", err)
	}
	return &commit, nil
}
