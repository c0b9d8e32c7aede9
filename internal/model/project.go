package model

import "time"

const ProjectTableName = "projects"

// Project is a repository plus an evaluation wildcard selecting its build
// targets. Name is unique within the owning organization.
type Project struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string `gorm:"size:36;not null;uniqueIndex:uk_org_project" json:"organization_id"`
	Name           string `gorm:"size:64;not null;uniqueIndex:uk_org_project" json:"name"`
	DisplayName    string `gorm:"size:128" json:"display_name"`
	Description    string `gorm:"type:text" json:"description"`

	Repository         string `gorm:"size:255;not null" json:"repository"`
	EvaluationWildcard string `gorm:"size:255;not null" json:"evaluation_wildcard"`

	LastEvaluationID *string `gorm:"size:36" json:"last_evaluation_id"`

	CreatedBy string    `gorm:"size:36;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (Project) TableName() string {
	return ProjectTableName
}
