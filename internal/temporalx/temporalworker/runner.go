package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/temporalx"
	"github.com/yungbote/firstflame-backend/internal/temporalx/flamestate"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc     temporalsdkclient.Client
	ritual flamestate.Ensurer

	w worker.Worker
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, ritual flamestate.Ensurer) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if ritual == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{log: log.With("component", "TemporalWorker"), cfg: cfg, tc: tc, ritual: ritual}, nil
}

// Start polls the task queue until ctx is cancelled. A missing namespace is registered first
// when auto-registration is enabled; start failures are retried up to the dial wait.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	attempt := 0
	start := func() error {
		attempt++
		w := r.newWorker()
		err := w.Start()
		if err == nil {
			r.w = w
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(err, &nfe) {
			if !cfg.AutoRegisterNamespace {
				return backoff.Permanent(fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, err))
			}
			if nsErr := temporalx.EnsureNamespace(ctx, cfg, r.log); nsErr != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", cfg.Namespace, "error", nsErr)
			}
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", err)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffBase
	b.MaxInterval = cfg.BackoffMax
	b.MaxElapsedTime = cfg.DialMaxWait
	if err := backoff.Retry(start, backoff.WithContext(b, ctx)); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
	return nil
}

func (r *Runner) Stop() {
	if r == nil || r.w == nil {
		return
	}
	r.w.Stop()
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
		WorkerStopTimeout:                      10 * time.Second,
	})
	acts := &flamestate.Activities{Log: r.log, Ritual: r.ritual}
	w.RegisterWorkflowWithOptions(flamestate.Workflow, workflow.RegisterOptions{Name: flamestate.WorkflowName})
	w.RegisterActivityWithOptions(acts.Ensure, activity.RegisterOptions{Name: flamestate.ActivityEnsure})
	return w
}
