// Package vcs resolves project repositories to commits.
package vcs

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/wavelens/gradient/pkg/responses"
)

// CommitInfo describes the head commit of a repository at fetch time.
type CommitInfo struct {
	Hash    string
	Message string
	Author  string
}

// Fetcher resolves a repository URL to its current head commit.
type Fetcher interface {
	FetchHead(ctx context.Context, repositoryURL string) (*CommitInfo, error)
}

type gitFetcher struct{}

// NewGitFetcher returns a Fetcher backed by go-git. The repository is
// cloned into memory at depth 1; nothing touches disk.
func NewGitFetcher() Fetcher {
	return &gitFetcher{}
}

func (f *gitFetcher) FetchHead(ctx context.Context, repositoryURL string) (*CommitInfo, error) {
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, &git.CloneOptions{
		URL:          repositoryURL,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	})
	if err != nil {
		return nil, responses.Wrap(responses.CodeEvaluatorError, "clone repository", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, responses.Wrap(responses.CodeEvaluatorError, "resolve repository head", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, responses.Wrap(responses.CodeEvaluatorError, "read head commit", err)
	}

	return &CommitInfo{
		Hash:    commit.Hash.String(),
		Message: strings.TrimSpace(commit.Message),
		Author:  commit.Author.Name,
	}, nil
}
