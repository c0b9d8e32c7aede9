package dto

// CreateCacheRequest creates a shared binary cache.
type CreateCacheRequest struct {
	Name        string `json:"name" binding:"required,slug"`
	DisplayName string `json:"display_name" binding:"max=128"`
	Description string `json:"description" binding:"max=4096"`
	Priority    int    `json:"priority"`
}

// UpdateCacheRequest patches mutable cache fields.
type UpdateCacheRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Description *string `json:"description" binding:"omitempty,max=4096"`
	Priority    *int    `json:"priority"`
	Active      *bool   `json:"active"`
}
