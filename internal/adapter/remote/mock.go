package remote

import (
	"context"
	"io"
	"sync"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/pkg/responses"
)

// MockResult scripts the outcome of one derivation on the mock executor.
type MockResult struct {
	Log        string
	OutputHash string
	Err        error
	// Block, when non-nil, is closed by the test to let the build finish.
	Block chan struct{}
}

// MockExecutor runs scripted builds in-process. Unscripted derivations
// succeed with an empty log.
type MockExecutor struct {
	mu            sync.Mutex
	results       map[string]MockResult
	calls         []string
	checkErr      error
	checkFailures int // -1 fails every probe
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{results: make(map[string]MockResult)}
}

// SetCheckErr makes every connection probe fail.
func (e *MockExecutor) SetCheckErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkErr = err
	e.checkFailures = -1
}

// SetCheckFailures makes the next n probes fail, then succeed.
func (e *MockExecutor) SetCheckFailures(n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkErr = err
	e.checkFailures = n
}

func (e *MockExecutor) SetResult(derivation string, result MockResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[derivation] = result
}

// Calls returns the derivations executed so far, in order.
func (e *MockExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *MockExecutor) Execute(ctx context.Context, _ *model.Server, _, derivation string, logs io.Writer) (string, error) {
	e.mu.Lock()
	e.calls = append(e.calls, derivation)
	result, ok := e.results[derivation]
	e.mu.Unlock()

	if !ok {
		return "", nil
	}

	if result.Block != nil {
		select {
		case <-result.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if result.Log != "" {
		if _, err := io.WriteString(logs, result.Log); err != nil {
			return "", err
		}
	}
	if result.Err != nil {
		return "", result.Err
	}
	return result.OutputHash, nil
}

func (e *MockExecutor) Check(_ context.Context, server *model.Server, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.checkFailures == 0 || e.checkErr == nil {
		return nil
	}
	if e.checkFailures > 0 {
		e.checkFailures--
	}
	return responses.Wrap(responses.CodeDispatchError, "check server "+server.Name, e.checkErr)
}
