package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/api/middleware"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type OrganizationHandler struct {
	orgs *service.OrganizationService
}

func NewOrganizationHandler(orgs *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	org, err := h.orgs.Create(middleware.CurrentUserID(c), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, org)
}

func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgs.List(middleware.CurrentUserID(c))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, orgs)
}

func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.orgs.Get(c.Param("org"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, org)
}

func (h *OrganizationHandler) Update(c *gin.Context) {
	var req dto.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	org, err := h.orgs.Update(c.Param("org"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, org)
}

func (h *OrganizationHandler) Delete(c *gin.Context) {
	if err := h.orgs.Delete(c.Param("org")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "deleted")
}

// GetSSHKey returns the public key, generating a keypair on first use.
func (h *OrganizationHandler) GetSSHKey(c *gin.Context) {
	key, err := h.orgs.GetOrCreateSSHKey(c.Param("org"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, key)
}

func (h *OrganizationHandler) RotateSSHKey(c *gin.Context) {
	key, err := h.orgs.RotateSSHKey(c.Param("org"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, key)
}

func (h *OrganizationHandler) RemoveSSHKey(c *gin.Context) {
	if err := h.orgs.RemoveSSHKey(c.Param("org")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "removed")
}
