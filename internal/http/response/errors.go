package response

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

// Error codes returned in the envelope's code field.
const (
	CodeUnauthorized    = "unauthorized"
	CodeAlreadyActive   = "already_active"
	CodeRateLimited     = "rate_limited"
	CodeDayMismatch     = "day_mismatch"
	CodeAlreadyComplete = "already_complete"
	CodeStorageFailure  = "storage_failure"
	CodeValidation      = "validation"
	CodeInternal        = "internal"
)

// RespondRitualError writes the HTTP form of an advancement or status error.
func RespondRitualError(c *gin.Context, err error) {
	status, body := ritualError(err)
	if body.RetryAfterMs > 0 {
		secs := int64(math.Ceil(float64(body.RetryAfterMs) / 1000))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(c, status, body)
}

func ritualError(err error) (int, APIError) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	var mismatch *ritual.DayMismatchError
	var limited *ritual.RateLimitedError
	switch {
	case errors.Is(err, ritual.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{Message: msg, Code: CodeUnauthorized}
	case errors.Is(err, ritual.ErrAlreadyActive):
		return http.StatusConflict, APIError{Message: msg, Code: CodeAlreadyActive}
	case errors.As(err, &limited):
		ms := limited.RetryAfter.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		return http.StatusTooManyRequests, APIError{Message: msg, Code: CodeRateLimited, RetryAfterMs: ms}
	case errors.As(err, &mismatch):
		day := mismatch.Authoritative
		return http.StatusConflict, APIError{Message: msg, Code: CodeDayMismatch, CurrentDayTarget: &day}
	case errors.Is(err, ritual.ErrAlreadyComplete):
		return http.StatusConflict, APIError{Message: msg, Code: CodeAlreadyComplete}
	case errors.Is(err, ritual.ErrStorageFailure):
		return http.StatusServiceUnavailable, APIError{Message: "progress could not be saved", Code: CodeStorageFailure, Retryable: true}
	case errors.Is(err, ritual.ErrInvalidDay), errors.Is(err, ritual.ErrUnknownQuest),
		domainagg.IsCode(err, domainagg.CodeValidation):
		return http.StatusBadRequest, APIError{Message: msg, Code: CodeValidation}
	case domainagg.IsTransient(err):
		return http.StatusServiceUnavailable, APIError{Message: "temporarily unavailable", Code: CodeStorageFailure, Retryable: true}
	default:
		return http.StatusInternalServerError, APIError{Message: "internal error", Code: CodeInternal}
	}
}
