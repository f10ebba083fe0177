package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCodeKey is the gin context key holding the code of an error response, for access logs.
const ErrorCodeKey = "response.error_code"

type APIError struct {
	Message          string `json:"message"`
	Code             string `json:"code,omitempty"`
	CurrentDayTarget *int   `json:"current_day_target,omitempty"`
	RetryAfterMs     int64  `json:"retry_after_ms,omitempty"`
	Retryable        bool   `json:"retryable,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeError(c, status, APIError{Message: msg, Code: code})
}

func writeError(c *gin.Context, status int, body APIError) {
	if body.Code != "" {
		c.Set(ErrorCodeKey, body.Code)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
