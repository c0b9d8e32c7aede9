package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/api/middleware"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type ServerHandler struct {
	servers *service.ServerService
}

func NewServerHandler(servers *service.ServerService) *ServerHandler {
	return &ServerHandler{servers: servers}
}

func (h *ServerHandler) Register(c *gin.Context) {
	var req dto.CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	server, err := h.servers.Register(middleware.CurrentUserID(c), c.Param("org"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, server)
}

func (h *ServerHandler) List(c *gin.Context) {
	servers, err := h.servers.List(c.Param("org"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, servers)
}

func (h *ServerHandler) Get(c *gin.Context) {
	server, err := h.servers.Get(c.Param("org"), c.Param("server"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, server)
}

func (h *ServerHandler) Update(c *gin.Context) {
	var req dto.UpdateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	server, err := h.servers.Update(c.Param("org"), c.Param("server"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, server)
}

func (h *ServerHandler) Delete(c *gin.Context) {
	if err := h.servers.Delete(c.Param("org"), c.Param("server")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "deleted")
}

// Activate enables the server for dispatch.
func (h *ServerHandler) Activate(c *gin.Context) {
	h.setActive(c, true)
}

// Deactivate removes the server from dispatch without deleting it.
func (h *ServerHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

func (h *ServerHandler) setActive(c *gin.Context, active bool) {
	server, err := h.servers.Update(c.Param("org"), c.Param("server"),
		&dto.UpdateServerRequest{Active: &active})
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, server)
}

// Check probes the server over SSH with the organization's key.
func (h *ServerHandler) Check(c *gin.Context) {
	if err := h.servers.CheckConnection(c.Request.Context(), c.Param("org"), c.Param("server")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "ok")
}
