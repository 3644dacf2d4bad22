package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinicstore/pkg/errors"
	"github.com/jwalitptl/clinicstore/pkg/logger"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	TraceID   string `json:"trace_id,omitempty"`
}

// StatusCode maps an application error code to an HTTP status.
func StatusCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal errors are logged with their cause but reported without it.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		traceID := c.GetString(ContextRequestID)
		err := c.Errors.Last().Err
		code := apperrors.Code(err)
		status := StatusCode(code)

		message := err.Error()
		if status == http.StatusInternalServerError {
			log.Error(err, "Request error",
				"request_id", traceID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			message = "internal error"
		}

		c.JSON(status, ErrorResponse{
			Code:      status,
			ErrorCode: code.String(),
			Message:   message,
			TraceID:   traceID,
		})
	}
}
