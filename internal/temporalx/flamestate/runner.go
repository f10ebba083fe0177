package flamestate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/services"
)

// Runner dispatches EnsureFlameState through Temporal and waits for the result.
type Runner struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

var _ services.FlameStateRunner = (*Runner)(nil)

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if taskQueue == "" {
		return nil, fmt.Errorf("temporal task queue is required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{log: log.With("component", "FlameStateRunner"), tc: tc, taskQueue: taskQueue}, nil
}

func (r *Runner) Ensure(ctx context.Context, userID uuid.UUID) (*services.FlameState, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("ensure flame state: missing user id")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(userID.String()),
		TaskQueue:                r.taskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}
	run, err := r.tc.ExecuteWorkflow(ctx, opts, WorkflowName, Input{UserID: userID.String()})
	if err != nil {
		return nil, fmt.Errorf("ensure flame state: start workflow: %w", err)
	}
	var out services.FlameState
	if err := run.Get(ctx, &out); err != nil {
		r.log.Warn("ensure flame state workflow failed", "user_id", userID, "workflow_id", run.GetID(), "run_id", run.GetRunID(), "error", err)
		return nil, err
	}
	return &out, nil
}
