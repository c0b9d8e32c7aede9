package model

import (
	"time"

	"gorm.io/datatypes"

	"github.com/wavelens/gradient/pkg/constants"
)

const BuildTableName = "builds"

// Build is one buildable target's execution record within an evaluation.
// Seq preserves creation order for listings; execution order across builds
// is unordered.
type Build struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	EvaluationID string `gorm:"size:36;not null;index" json:"evaluation_id"`
	Seq          int    `gorm:"not null" json:"seq"`

	Derivation   string                      `gorm:"size:255;not null" json:"derivation"`
	Architecture string                      `gorm:"size:32;not null" json:"architecture"`
	Features     datatypes.JSONSlice[string] `json:"features"`

	Status   int8    `gorm:"not null;index" json:"status"`
	ServerID *string `gorm:"size:36;index" json:"server_id"`

	Log        string `gorm:"type:text" json:"-"` // append-only, readable mid-run
	OutputHash string `gorm:"size:64" json:"output_hash,omitempty"`
	Error      string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Evaluation *Evaluation `gorm:"foreignKey:EvaluationID" json:"evaluation,omitempty"`
	Server     *Server     `gorm:"foreignKey:ServerID" json:"server,omitempty"`
}

func (Build) TableName() string {
	return BuildTableName
}

// StatusName returns the display name of the current status.
func (b *Build) StatusName() string {
	return constants.BuildStatusToString(b.Status)
}

// IsTerminal reports whether the build reached a final state.
func (b *Build) IsTerminal() bool {
	return constants.IsBuildTerminal(b.Status)
}
