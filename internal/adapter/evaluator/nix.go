package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/wavelens/gradient/pkg/responses"
)

type nixEvaluator struct {
	binary  string
	workDir string
}

// NewNixEvaluator returns an Evaluator that shells out to the nix binary.
// The repository is evaluated remotely by flake reference; workDir holds
// the evaluation cache.
func NewNixEvaluator(binary, workDir string) Evaluator {
	return &nixEvaluator{binary: binary, workDir: workDir}
}

func (e *nixEvaluator) Evaluate(ctx context.Context, repositoryURL, commitHash string) ([]Target, error) {
	flakeRef := fmt.Sprintf("git+%s?rev=%s#gradientTargets", repositoryURL, commitHash)

	cmd := exec.CommandContext(ctx, e.binary, "eval", "--json", flakeRef)
	cmd.Dir = e.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return nil, responses.New(responses.CodeEvaluatorError, "evaluate repository: "+msg)
	}

	var targets []Target
	if err := json.Unmarshal(stdout.Bytes(), &targets); err != nil {
		return nil, responses.Wrap(responses.CodeEvaluatorError, "parse evaluator output", err)
	}
	return targets, nil
}
