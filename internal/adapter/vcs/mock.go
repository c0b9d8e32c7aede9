package vcs

import (
	"context"

	"github.com/wavelens/gradient/pkg/responses"
)

// MockFetcher serves canned commits keyed by repository URL. Used in tests
// and when running without network access.
type MockFetcher struct {
	Commits map[string]*CommitInfo
	Err     error
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Commits: make(map[string]*CommitInfo)}
}

func (f *MockFetcher) SetCommit(repositoryURL string, info *CommitInfo) {
	f.Commits[repositoryURL] = info
}

func (f *MockFetcher) FetchHead(_ context.Context, repositoryURL string) (*CommitInfo, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	info, ok := f.Commits[repositoryURL]
	if !ok {
		return nil, responses.New(responses.CodeEvaluatorError, "repository not found: "+repositoryURL)
	}
	return info, nil
}
