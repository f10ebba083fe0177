package flamestate

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/firstflame-backend/internal/services"
)

// Workflow runs a single ensure activity with bounded retries.
func Workflow(ctx workflow.Context, in Input) (*services.FlameState, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        15 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeUnauthorized, ErrTypeValidation},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var out services.FlameState
	if err := workflow.ExecuteActivity(ctx, ActivityEnsure, in).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
