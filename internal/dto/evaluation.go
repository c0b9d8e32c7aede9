package dto

import (
	"time"

	"github.com/wavelens/gradient/internal/model"
)

// EvaluationInfo is the external view of an evaluation.
type EvaluationInfo struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Commit    string    `json:"commit,omitempty"`
	Wildcard  string    `json:"wildcard"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvaluationInfo converts a stored evaluation, resolving the status
// name. commitHash may be empty when the caller did not load the commit.
func NewEvaluationInfo(eval *model.Evaluation, commitHash string) EvaluationInfo {
	return EvaluationInfo{
		ID:        eval.ID,
		ProjectID: eval.ProjectID,
		Commit:    commitHash,
		Wildcard:  eval.Wildcard,
		Status:    eval.StatusName(),
		Error:     eval.Error,
		CreatedAt: eval.CreatedAt,
		UpdatedAt: eval.UpdatedAt,
	}
}

// EvaluationActionRequest selects an action on an evaluation by name.
type EvaluationActionRequest struct {
	Method string `json:"method" binding:"required"`
}

// BuildInfo is the external view of a build.
type BuildInfo struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluation_id"`
	Seq          int       `json:"seq"`
	Derivation   string    `json:"derivation"`
	Architecture string    `json:"architecture"`
	Features     []string  `json:"features"`
	Status       string    `json:"status"`
	ServerID     *string   `json:"server_id"`
	OutputHash   string    `json:"output_hash,omitempty"`
	Error        string    `json:"error,omitempty"`
	Log          string    `json:"log,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewBuildInfo converts a stored build, resolving the status name.
func NewBuildInfo(b *model.Build) BuildInfo {
	return BuildInfo{
		ID:           b.ID,
		EvaluationID: b.EvaluationID,
		Seq:          b.Seq,
		Derivation:   b.Derivation,
		Architecture: b.Architecture,
		Features:     b.Features,
		Status:       b.StatusName(),
		ServerID:     b.ServerID,
		OutputHash:   b.OutputHash,
		Error:        b.Error,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
