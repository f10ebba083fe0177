package flamestate

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	domainagg "github.com/yungbote/firstflame-backend/internal/domain/aggregates"
	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/services"
)

type Ensurer interface {
	EnsureFlameState(ctx context.Context, userID uuid.UUID) (*services.FlameState, error)
}

type Activities struct {
	Log    *logger.Logger
	Ritual Ensurer
}

func (a *Activities) Ensure(ctx context.Context, in Input) (*services.FlameState, error) {
	if a == nil || a.Ritual == nil {
		return nil, temporal.NewNonRetryableApplicationError("flame state activity not configured", ErrTypeValidation, nil)
	}
	userID, err := uuid.Parse(in.UserID)
	if err != nil || userID == uuid.Nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid user id", ErrTypeUnauthorized, err)
	}
	out, err := a.Ritual.EnsureFlameState(ctx, userID)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, ritual.ErrUnauthorized):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnauthorized, err)
	case domainagg.IsCode(err, domainagg.CodeValidation):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err)
	default:
		if a.Log != nil {
			a.Log.Warn("ensure flame state failed; will retry", "user_id", userID, "error", err)
		}
		return nil, err
	}
}
