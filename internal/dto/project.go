package dto

// CreateProjectRequest creates a project inside an organization.
type CreateProjectRequest struct {
	Name               string `json:"name" binding:"required,slug"`
	DisplayName        string `json:"display_name" binding:"required,max=128"`
	Description        string `json:"description" binding:"max=4096"`
	Repository         string `json:"repository" binding:"required,max=255"`
	EvaluationWildcard string `json:"evaluation_wildcard" binding:"required,max=255"`
}

// UpdateProjectRequest patches mutable project fields.
type UpdateProjectRequest struct {
	DisplayName        *string `json:"display_name" binding:"omitempty,max=128"`
	Description        *string `json:"description" binding:"omitempty,max=4096"`
	Repository         *string `json:"repository" binding:"omitempty,max=255"`
	EvaluationWildcard *string `json:"evaluation_wildcard" binding:"omitempty,max=255"`
}
