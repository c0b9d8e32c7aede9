// Package handler binds HTTP requests to services.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	user, err := h.auth.Register(&req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	resp, err := h.auth.Login(&req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, resp)
}
