package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

func TestRespondRitualErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
		day        int
		retryable  bool
	}{
		{name: "unauthorized", err: ritual.ErrUnauthorized, status: http.StatusUnauthorized, code: CodeUnauthorized},
		{name: "already active", err: ritual.ErrAlreadyActive, status: http.StatusConflict, code: CodeAlreadyActive},
		{name: "rate limited", err: &ritual.RateLimitedError{RetryAfter: 1500 * time.Millisecond}, status: http.StatusTooManyRequests, code: CodeRateLimited, retryAfter: "2"},
		{name: "day mismatch", err: &ritual.DayMismatchError{Submitted: 3, Authoritative: 2}, status: http.StatusConflict, code: CodeDayMismatch, day: 2},
		{name: "already complete", err: ritual.ErrAlreadyComplete, status: http.StatusConflict, code: CodeAlreadyComplete},
		{name: "storage failure", err: &ritual.StorageFailureError{Op: "x", Cause: errors.New("disk")}, status: http.StatusServiceUnavailable, code: CodeStorageFailure, retryable: true},
		{name: "invalid day", err: fmt.Errorf("%w: 9", ritual.ErrInvalidDay), status: http.StatusBadRequest, code: CodeValidation},
		{name: "aggregate validation", err: domainagg.NewError(domainagg.CodeValidation, "op", "bad", nil), status: http.StatusBadRequest, code: CodeValidation},
		{name: "aggregate retryable", err: domainagg.NewError(domainagg.CodeRetryable, "op", "locked", nil), status: http.StatusServiceUnavailable, code: CodeStorageFailure, retryable: true},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondRitualError(c, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, env.Error.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != tc.retryAfter {
				t.Fatalf("Retry-After: want=%q got=%q", tc.retryAfter, got)
			}
			if tc.day != 0 && (env.Error.CurrentDayTarget == nil || *env.Error.CurrentDayTarget != tc.day) {
				t.Fatalf("current_day_target: want=%d got=%v", tc.day, env.Error.CurrentDayTarget)
			}
			if env.Error.Retryable != tc.retryable {
				t.Fatalf("retryable: want=%v got=%v", tc.retryable, env.Error.Retryable)
			}
		})
	}
}
