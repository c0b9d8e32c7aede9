package dto

// CreateServerRequest registers a build server with an organization.
type CreateServerRequest struct {
	Name          string   `json:"name" binding:"required,slug"`
	DisplayName   string   `json:"display_name" binding:"max=128"`
	Host          string   `json:"host" binding:"required,max=255"`
	Port          int      `json:"port" binding:"required"`
	SSHUsername   string   `json:"ssh_username" binding:"required,max=64"`
	Architectures []string `json:"architectures" binding:"required"`
	Features      []string `json:"features" binding:"required"`
}

// UpdateServerRequest patches mutable server fields.
type UpdateServerRequest struct {
	DisplayName   *string   `json:"display_name" binding:"omitempty,max=128"`
	Host          *string   `json:"host" binding:"omitempty,max=255"`
	Port          *int      `json:"port"`
	SSHUsername   *string   `json:"ssh_username" binding:"omitempty,max=64"`
	Architectures *[]string `json:"architectures"`
	Features      *[]string `json:"features"`
	Active        *bool     `json:"active"`
}
