// Package evaluation holds the evaluation lifecycle state machine.
package evaluation

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/wavelens/gradient/internal/repository"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

// transitions lists the legal moves out of each state. Terminal states
// have no entry.
var transitions = map[int8][]int8{
	constants.EvaluationStatusQueued: {
		constants.EvaluationStatusEvaluating,
		constants.EvaluationStatusAborted,
	},
	constants.EvaluationStatusEvaluating: {
		constants.EvaluationStatusBuilding,
		constants.EvaluationStatusCompleted,
		constants.EvaluationStatusFailed,
		constants.EvaluationStatusAborted,
	},
	constants.EvaluationStatusBuilding: {
		constants.EvaluationStatusCompleted,
		constants.EvaluationStatusFailed,
		constants.EvaluationStatusAborted,
	},
}

// StateMachine drives evaluation status changes through compare-and-swap
// updates, so concurrent writers (scanner, abort requests) cannot clobber
// each other.
type StateMachine struct {
	repo repository.EvaluationRepository
}

func NewStateMachine(repo repository.EvaluationRepository) *StateMachine {
	return &StateMachine{repo: repo}
}

// CanTransition reports whether from -> to is a legal move.
func (m *StateMachine) CanTransition(from, to int8) bool {
	return lo.Contains(transitions[from], to)
}

// Transition moves the evaluation from -> to. It returns false without
// error when another writer changed the row first.
func (m *StateMachine) Transition(id string, from, to int8) (bool, error) {
	if !m.CanTransition(from, to) {
		return false, responses.New(responses.CodeInternalError,
			fmt.Sprintf("illegal evaluation transition %s -> %s",
				constants.EvaluationStatusToString(from),
				constants.EvaluationStatusToString(to)))
	}
	return m.repo.UpdateStatus(id, from, to)
}

// Abort moves the evaluation to Aborted from whichever non-terminal state
// it is in. Returns false when the evaluation already reached a terminal
// state; the first writer wins.
func (m *StateMachine) Abort(id string) (bool, error) {
	for from := range transitions {
		ok, err := m.repo.UpdateStatus(id, from, constants.EvaluationStatusAborted)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
