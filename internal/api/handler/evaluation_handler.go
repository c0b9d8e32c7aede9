package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/dto"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/responses"
)

type EvaluationHandler struct {
	evals *service.EvaluationService
}

func NewEvaluationHandler(evals *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evals: evals}
}

func (h *EvaluationHandler) Get(c *gin.Context) {
	eval, err := h.evals.Get(c.Param("id"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, eval)
}

func (h *EvaluationHandler) ListBuilds(c *gin.Context) {
	builds, err := h.evals.ListBuilds(c.Param("id"))
	if err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, builds)
}

func (h *EvaluationHandler) Abort(c *gin.Context) {
	if err := h.evals.Abort(c.Param("id")); err != nil {
		responses.Error(c, err)
		return
	}
	responses.Success(c, "aborted")
}

// Action dispatches on the request body's method field. Abort is the only
// method today.
func (h *EvaluationHandler) Action(c *gin.Context) {
	var req dto.EvaluationActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, responses.NewValidation(err.Error()))
		return
	}

	switch req.Method {
	case "abort":
		h.Abort(c)
	default:
		responses.Error(c, responses.NewValidation("unknown method: "+req.Method))
	}
}
