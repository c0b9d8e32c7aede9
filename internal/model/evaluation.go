package model

import (
	"time"

	"github.com/wavelens/gradient/pkg/constants"
)

const EvaluationTableName = "evaluations"

// Evaluation is one attempt to expand a project's repository at a commit
// into builds. Status transitions are one-directional; see pkg/constants.
type Evaluation struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string `gorm:"size:36;not null;index" json:"project_id"`
	CommitID  string `gorm:"size:36;not null" json:"commit_id"`

	Wildcard string `gorm:"size:255;not null" json:"wildcard"`
	Status   int8   `gorm:"not null;index" json:"status"`
	Error    string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Commit  *Commit  `gorm:"foreignKey:CommitID" json:"commit,omitempty"`
}

func (Evaluation) TableName() string {
	return EvaluationTableName
}

// StatusName returns the display name of the current status.
func (e *Evaluation) StatusName() string {
	return constants.EvaluationStatusToString(e.Status)
}

// IsTerminal reports whether the evaluation reached a final state.
func (e *Evaluation) IsTerminal() bool {
	return constants.IsEvaluationTerminal(e.Status)
}
