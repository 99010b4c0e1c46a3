package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is how long the coordinator waits between
	// readiness checks of a busy resource.
	DefaultPollInterval = 1 * time.Minute

	// DefaultMaxWait bounds the total time spent waiting for one busy
	// resource before the action fails with a timeout.
	DefaultMaxWait = 30 * time.Minute
)

// MetricsSink receives coordinator counters. The telemetry package provides
// the Prometheus-backed implementation; a nil sink disables metrics.
type MetricsSink interface {
	// ActionCompleted records one terminal action result.
	ActionCompleted(actionType ActionType, status ActionStatus)

	// ReadinessPolled records one readiness check.
	ReadinessPolled(ref ResourceRef, readiness Readiness)
}

// ApplyOptions configures one Apply run.
type ApplyOptions struct {
	// CIMode turns "wait for a busy resource" into "defer and report",
	// avoiding unbounded CI job duration.
	CIMode bool

	// PollInterval overrides the readiness poll interval.
	PollInterval time.Duration

	// MaxWait overrides the maximum total wait per busy resource.
	MaxWait time.Duration
}

func (o ApplyOptions) withDefaults() ApplyOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	return o
}

// Coordinator applies action plans against resources that enforce a
// single-writer constraint. Actions are processed sequentially in plan
// order; the readiness poll loop is the only suspension point and it is
// cancellable through the context.
type Coordinator struct {
	readiness ReadinessChecker
	mutator   Mutator
	log       zerolog.Logger
	metrics   MetricsSink
}

// NewCoordinator creates a coordinator for one batch. The mutator must
// understand the payload type of the plan's actions.
func NewCoordinator(readiness ReadinessChecker, mutator Mutator, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		readiness: readiness,
		mutator:   mutator,
		log:       log,
	}
}

// WithMetrics attaches a metrics sink.
func (c *Coordinator) WithMetrics(m MetricsSink) *Coordinator {
	c.metrics = m
	return c
}

// Apply executes the plan and returns the per-entity outcome. It never
// returns an error: every failure is recorded in the outcome, and the
// caller derives the process exit code from it. After an interrupt the
// in-flight action records a failure and the remaining actions are left
// unprocessed; already-recorded outcomes are preserved.
func (c *Coordinator) Apply(ctx context.Context, plan *Plan, opts ApplyOptions) *RunOutcome {
	opts = opts.withDefaults()
	outcome := NewRunOutcome(plan.ID)

	for _, action := range plan.Actions {
		result := c.applyOne(ctx, action, opts)
		outcome.Record(result)
		if c.metrics != nil {
			c.metrics.ActionCompleted(action.Type, result.Status)
		}
		if result.Status == StatusFailed && errors.Is(result.Err, context.Canceled) {
			c.log.Warn().Str("entity", action.EntityID).Msg("interrupted, aborting remaining actions")
			break
		}
	}

	return outcome
}

// applyOne drives a single action through its state machine:
// Pending -> Checking -> Applying -> Succeeded|Failed, with Busy resources
// looping through Waiting -> Checking until ready, deferred, or timed out.
func (c *Coordinator) applyOne(ctx context.Context, action Action, opts ApplyOptions) ActionResult {
	start := time.Now()
	result := ActionResult{EntityID: action.EntityID}

	switch action.Type {
	case ActionSkip:
		result.Status = StatusSkipped
		result.Reason = action.Reason
		c.log.Info().Str("entity", action.EntityID).Str("reason", action.Reason).Msg("skipped")
		return result
	case ActionFailed:
		result.Status = StatusFailed
		result.Err = action.Err
		result.Reason = action.Reason
		c.log.Error().Str("entity", action.EntityID).Err(action.Err).Msg("rejected during planning")
		return result
	}

	if action.Resource.SingleWriter() {
		ready, res := c.awaitReady(ctx, action, opts)
		if !ready {
			res.Duration = time.Since(start)
			return res
		}
	}

	c.log.Info().
		Str("entity", action.EntityID).
		Str("action", string(action.Type)).
		Msg("applying")

	if err := c.mutator.Mutate(ctx, action); err != nil {
		result.Status = StatusFailed
		result.Err = err
		result.Duration = time.Since(start)
		c.log.Error().Str("entity", action.EntityID).Err(err).Msg("mutation rejected")
		return result
	}

	// Success means the server accepted the request. Propagation on the
	// remote side is asynchronous and is not re-verified here.
	result.Status = StatusSucceeded
	result.Duration = time.Since(start)
	return result
}

// awaitReady polls the owning resource until it is ready, the wait budget is
// exhausted, CI mode defers, or the context is cancelled. It returns true
// when the resource is ready to mutate; otherwise the returned result is
// terminal.
func (c *Coordinator) awaitReady(ctx context.Context, action Action, opts ApplyOptions) (bool, ActionResult) {
	result := ActionResult{EntityID: action.EntityID}
	deadline := time.Now().Add(opts.MaxWait)

	for {
		readiness, err := c.readiness.Readiness(ctx, action.Resource)
		if err != nil {
			result.Status = StatusFailed
			result.Err = NewRemoteError("readiness check failed", err).WithEntity(action.EntityID)
			return false, result
		}
		if c.metrics != nil {
			c.metrics.ReadinessPolled(action.Resource, readiness)
		}

		if readiness == ReadinessReady {
			return true, result
		}

		// Unknown is treated as busy: never mutate a resource in an
		// indeterminate state.
		if opts.CIMode {
			result.Status = StatusDeferred
			result.Reason = "resource busy, skipped in CI mode"
			c.log.Warn().
				Str("entity", action.EntityID).
				Str("resource", action.Resource.String()).
				Msg("resource busy, deferring in CI mode")
			return false, result
		}

		if time.Now().Add(opts.PollInterval).After(deadline) {
			result.Status = StatusFailed
			result.Err = NewCoordinationError(
				fmt.Sprintf("resource %s still busy after %s", action.Resource, opts.MaxWait), nil).
				WithCode(ErrCodeTimeout).
				WithEntity(action.EntityID)
			return false, result
		}

		c.log.Info().
			Str("resource", action.Resource.String()).
			Dur("interval", opts.PollInterval).
			Msg("resource busy, waiting")

		select {
		case <-time.After(opts.PollInterval):
		case <-ctx.Done():
			result.Status = StatusFailed
			result.Err = NewCoordinationError("wait interrupted", ctx.Err()).
				WithCode(ErrCodeInterrupted).
				WithEntity(action.EntityID)
			return false, result
		}
	}
}
