package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/api/middleware"
	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	project, err := h.projects.Create(middleware.CurrentUserID(c), c.Param("org"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Param("org"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Param("org"), c.Param("project"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	project, err := h.projects.Update(c.Param("org"), c.Param("project"), &req)
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, project)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Param("org"), c.Param("project")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "deleted")
}

// Evaluate queues a new evaluation of the project's repository head.
func (h *ProjectHandler) Evaluate(c *gin.Context) {
	eval, err := h.projects.Evaluate(c.Request.Context(), c.Param("org"), c.Param("project"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, eval)
}
