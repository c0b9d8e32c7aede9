package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/api/middleware"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	responses.Success(c, middleware.CurrentUser(c))
}

func (h *UserHandler) CreateAPIKey(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	resp, err := h.users.CreateAPIKey(middleware.CurrentUserID(c), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, resp)
}

func (h *UserHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.users.ListAPIKeys(middleware.CurrentUserID(c))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, keys)
}

func (h *UserHandler) DeleteAPIKey(c *gin.Context) {
	if err := h.users.DeleteAPIKey(middleware.CurrentUserID(c), c.Param("name")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "deleted")
}
