package services

import (
	"context"

	"github.com/google/uuid"
)

// FlameStateRunner runs EnsureFlameState, either inline or through a durable workflow.
type FlameStateRunner interface {
	Ensure(ctx context.Context, userID uuid.UUID) (*FlameState, error)
}

type inlineFlameState struct {
	ritual RitualService
}

func NewInlineFlameStateRunner(ritual RitualService) FlameStateRunner {
	return &inlineFlameState{ritual: ritual}
}

func (r *inlineFlameState) Ensure(ctx context.Context, userID uuid.UUID) (*FlameState, error) {
	return r.ritual.EnsureFlameState(ctx, userID)
}
