// Package build holds the build lifecycle state machine.
package build

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

var transitions = map[int8][]int8{
	constants.BuildStatusQueued: {
		constants.BuildStatusAssigned,
		constants.BuildStatusAborted,
	},
	constants.BuildStatusAssigned: {
		constants.BuildStatusRunning,
		constants.BuildStatusQueued, // requeue when no server has capacity
		constants.BuildStatusFailed, // dispatch retries exhausted
		constants.BuildStatusAborted,
	},
	constants.BuildStatusRunning: {
		constants.BuildStatusCompleted,
		constants.BuildStatusFailed,
		constants.BuildStatusAborted,
	},
}

// StateMachine drives build status changes through compare-and-swap
// updates. Assignment and abort also touch the server column, so those go
// through the dedicated repository methods.
type StateMachine struct {
	repo repository.BuildRepository
}

func NewStateMachine(repo repository.BuildRepository) *StateMachine {
	return &StateMachine{repo: repo}
}

// CanTransition reports whether from -> to is a legal move.
func (m *StateMachine) CanTransition(from, to int8) bool {
	return lo.Contains(transitions[from], to)
}

// Transition moves the build from -> to. Returns false without error when
// another writer changed the row first.
func (m *StateMachine) Transition(id string, from, to int8) (bool, error) {
	if !m.CanTransition(from, to) {
		return false, responses.New(responses.CodeInternalError,
			fmt.Sprintf("illegal build transition %s -> %s",
				constants.BuildStatusToString(from),
				constants.BuildStatusToString(to)))
	}
	return m.repo.UpdateStatus(id, from, to)
}

// Assign claims a queued build for a server, setting the server column in
// the same statement.
func (m *StateMachine) Assign(buildID, serverID string) (bool, error) {
	return m.repo.Assign(buildID, serverID)
}

// Requeue returns an assigned build to the queue, clearing the server
// column.
func (m *StateMachine) Requeue(id string) (bool, error) {
	return m.repo.Requeue(id)
}

// Abort moves a non-terminal build to Aborted and clears its server
// assignment. Returns false when the build already finished.
func (m *StateMachine) Abort(id string) (bool, error) {
	return m.repo.Abort(id)
}
