package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type BuildHandler struct {
	builds *service.BuildService
}

func NewBuildHandler(builds *service.BuildService) *BuildHandler {
	return &BuildHandler{builds: builds}
}

func (h *BuildHandler) Get(c *gin.Context) {
	build, err := h.builds.Get(c.Param("id"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, build)
}

// GetLog returns the log accumulated so far, also for running builds.
func (h *BuildHandler) GetLog(c *gin.Context) {
	log, err := h.builds.GetLog(c.Param("id"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, log)
}
