package aggregates

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
)

func TestMapErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"already complete", ritual.ErrAlreadyComplete, domainagg.CodePreconditionFailed},
		{"unknown quest", ritual.ErrUnknownQuest, domainagg.CodeValidation},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg check", &pgconn.PgError{Code: "23514"}, domainagg.CodeInvariantViolation},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"sqlite check", errors.New("CHECK constraint failed: chk_ritual_day_range"), domainagg.CodeInvariantViolation},
		{"other", errors.New("disk on fire"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		got := MapError("op", tc.err)
		if !domainagg.IsCode(got, tc.want) {
			t.Fatalf("%s: want=%s got=%q (%v)", tc.name, tc.want, domainagg.CodeOf(got), got)
		}
	}
}

func TestMapErrorPassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil must map to nil")
	}
}
