package dto

// CreateOrganizationRequest creates an organization.
type CreateOrganizationRequest struct {
	Name        string `json:"name" binding:"required,slug"`
	DisplayName string `json:"display_name" binding:"required,max=128"`
	Description string `json:"description" binding:"max=4096"`
}

// UpdateOrganizationRequest patches mutable organization fields. Nil
// fields are left unchanged.
type UpdateOrganizationRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Description *string `json:"description" binding:"omitempty,max=4096"`
}

// SSHKeyResponse exposes the public half of an organization's keypair.
type SSHKeyResponse struct {
	PublicKey string `json:"public_key"`
}
