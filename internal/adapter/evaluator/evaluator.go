// Package evaluator expands a repository commit into buildable targets.
package evaluator

import (
	"context"
	"path"
)

// Target is one buildable derivation discovered during evaluation.
type Target struct {
	Derivation   string   `json:"derivation"`
	Architecture string   `json:"architecture"`
	Features     []string `json:"features"`
}

// Evaluator expands the repository at a commit into its build targets.
// Implementations do not filter; wildcard matching happens in the caller
// via FilterTargets.
type Evaluator interface {
	Evaluate(ctx context.Context, repositoryURL, commitHash string) ([]Target, error)
}

// FilterTargets returns the targets whose derivation name matches the
// shell-style wildcard. "*" selects everything.
func FilterTargets(targets []Target, wildcard string) []Target {
	if wildcard == "" || wildcard == "*" {
		return targets
	}
	matched := make([]Target, 0, len(targets))
	for _, t := range targets {
		ok, err := path.Match(wildcard, t.Derivation)
		if err == nil && ok {
			matched = append(matched, t)
		}
	}
	return matched
}
