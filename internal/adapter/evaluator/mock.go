package evaluator

import (
	"context"
	"sync"

	"github.com/wavelens/gradient/pkg/responses"
)

// MockEvaluator serves canned targets keyed by commit hash.
type MockEvaluator struct {
	mu      sync.Mutex
	targets map[string][]Target
	Err     error
}

func NewMockEvaluator() *MockEvaluator {
	return &MockEvaluator{targets: make(map[string][]Target)}
}

func (e *MockEvaluator) SetTargets(commitHash string, targets []Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[commitHash] = targets
}

func (e *MockEvaluator) Evaluate(_ context.Context, _, commitHash string) ([]Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	targets, ok := e.targets[commitHash]
	if !ok {
		return nil, responses.New(responses.CodeEvaluatorError, "no targets for commit "+commitHash)
	}
	return targets, nil
}
