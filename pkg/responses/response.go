package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the uniform API envelope. Success is HTTP 200 with
// error=false; failures carry error=true and a human-readable message.
// Clients are expected to check the error field, not the status code.
type Response struct {
	Error   bool        `json:"error"`
	Message interface{} `json:"message"`
}

// Success writes a success envelope with the given payload as message.
func Success(c *gin.Context, message interface{}) {
	c.JSON(http.StatusOK, Response{
		Error:   false,
		Message: message,
	})
}

// Error writes a failure envelope. AppError codes select the HTTP status;
// anything else is treated as an internal error.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		c.JSON(httpStatus(appErr.Code), Response{
			Error:   true,
			Message: appErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, Response{
		Error:   true,
		Message: err.Error(),
	})
}

// ErrorWithCode writes a failure envelope with an explicit code.
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(httpStatus(code), Response{
		Error:   true,
		Message: message,
	})
}

func httpStatus(code int) int {
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusInternalServerError
}
