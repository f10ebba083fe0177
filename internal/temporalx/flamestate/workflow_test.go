package flamestate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/services"
)

type fakeEnsurer struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (f *fakeEnsurer) EnsureFlameState(_ context.Context, userID uuid.UUID) (*services.FlameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	p := ritual.NewProjection(userID, ritual.FirstFlameSlug, time.Now().UTC())
	return &services.FlameState{Projection: *p, Created: f.calls == f.failures+1}, nil
}

func newEnv(t *testing.T, ens Ensurer) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Ritual: ens}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Ensure, activity.RegisterOptions{Name: ActivityEnsure})
	return env
}

func TestWorkflowEnsuresFlameState(t *testing.T) {
	ens := &fakeEnsurer{}
	env := newEnv(t, ens)
	userID := uuid.New()

	env.ExecuteWorkflow(WorkflowName, Input{UserID: userID.String()})
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out services.FlameState
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if out.Projection.UserID != userID || out.Projection.CurrentDayTarget != 1 || !out.Created {
		t.Fatalf("unexpected state: %+v", out)
	}
}

func TestWorkflowRetriesTransientFailures(t *testing.T) {
	ens := &fakeEnsurer{failures: 2}
	env := newEnv(t, ens)

	env.ExecuteWorkflow(WorkflowName, Input{UserID: uuid.New().String()})
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if ens.calls != 3 {
		t.Fatalf("calls: want=3 got=%d", ens.calls)
	}
}

func TestWorkflowDoesNotRetryUnauthorized(t *testing.T) {
	ens := &fakeEnsurer{err: ritual.ErrUnauthorized}
	env := newEnv(t, ens)

	env.ExecuteWorkflow(WorkflowName, Input{UserID: uuid.New().String()})
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error")
	}
	if ens.calls != 1 {
		t.Fatalf("calls: want=1 got=%d", ens.calls)
	}
}

func TestWorkflowRejectsInvalidUser(t *testing.T) {
	ens := &fakeEnsurer{}
	env := newEnv(t, ens)

	env.ExecuteWorkflow(WorkflowName, Input{UserID: "not-a-uuid"})
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error")
	}
	if ens.calls != 0 {
		t.Fatalf("calls: want=0 got=%d", ens.calls)
	}
}
