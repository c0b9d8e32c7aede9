package evaluation

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db))
	return db
}

func seedEvaluation(t *testing.T, db *gorm.DB, status int8) *model.Evaluation {
	t.Helper()
	eval := &model.Evaluation{
		ID:        uuid.NewString(),
		ProjectID: uuid.NewString(),
		CommitID:  uuid.NewString(),
		Wildcard:  "*",
		Status:    status,
	}
	require.NoError(t, db.Create(eval).Error)
	return eval
}

func TestCanTransition(t *testing.T) {
	sm := NewStateMachine(nil)

	assert.True(t, sm.CanTransition(constants.EvaluationStatusQueued, constants.EvaluationStatusEvaluating))
	assert.True(t, sm.CanTransition(constants.EvaluationStatusEvaluating, constants.EvaluationStatusBuilding))
	assert.True(t, sm.CanTransition(constants.EvaluationStatusEvaluating, constants.EvaluationStatusCompleted))
	assert.True(t, sm.CanTransition(constants.EvaluationStatusBuilding, constants.EvaluationStatusFailed))
	assert.True(t, sm.CanTransition(constants.EvaluationStatusQueued, constants.EvaluationStatusAborted))

	// No regressions, no skips, no leaving terminal states.
	assert.False(t, sm.CanTransition(constants.EvaluationStatusQueued, constants.EvaluationStatusBuilding))
	assert.False(t, sm.CanTransition(constants.EvaluationStatusBuilding, constants.EvaluationStatusQueued))
	assert.False(t, sm.CanTransition(constants.EvaluationStatusCompleted, constants.EvaluationStatusQueued))
	assert.False(t, sm.CanTransition(constants.EvaluationStatusAborted, constants.EvaluationStatusEvaluating))
}

func TestTransitionCAS(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewEvaluationRepository(db)
	sm := NewStateMachine(repo)

	eval := seedEvaluation(t, db, constants.EvaluationStatusQueued)

	ok, err := sm.Transition(eval.ID, constants.EvaluationStatusQueued, constants.EvaluationStatusEvaluating)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second claim loses the race.
	ok, err = sm.Transition(eval.ID, constants.EvaluationStatusQueued, constants.EvaluationStatusEvaluating)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(eval.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EvaluationStatusEvaluating, got.Status)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	db := newTestDB(t)
	sm := NewStateMachine(repository.NewEvaluationRepository(db))

	eval := seedEvaluation(t, db, constants.EvaluationStatusQueued)

	_, err := sm.Transition(eval.ID, constants.EvaluationStatusQueued, constants.EvaluationStatusCompleted)
	assert.Error(t, err)
}

func TestAbortFromAnyNonTerminalState(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewEvaluationRepository(db)
	sm := NewStateMachine(repo)

	for _, status := range []int8{
		constants.EvaluationStatusQueued,
		constants.EvaluationStatusEvaluating,
		constants.EvaluationStatusBuilding,
	} {
		eval := seedEvaluation(t, db, status)

		ok, err := sm.Abort(eval.ID)
		require.NoError(t, err)
		assert.True(t, ok, "status %d", status)

		got, err := repo.FindByID(eval.ID)
		require.NoError(t, err)
		assert.Equal(t, constants.EvaluationStatusAborted, got.Status)
	}
}

func TestAbortLosesToTerminalState(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewEvaluationRepository(db)
	sm := NewStateMachine(repo)

	for _, status := range []int8{
		constants.EvaluationStatusCompleted,
		constants.EvaluationStatusFailed,
		constants.EvaluationStatusAborted,
	} {
		eval := seedEvaluation(t, db, status)

		ok, err := sm.Abort(eval.ID)
		require.NoError(t, err)
		assert.False(t, ok, "status %d", status)

		got, err := repo.FindByID(eval.ID)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}
}
