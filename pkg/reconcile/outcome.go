package reconcile

import (
	"sort"
	"time"
)

// RunOutcome accumulates one terminal result per entity processed in a run.
// It is created fresh per invocation and only ever appended to; the core is
// single-threaded so no lock discipline is required here. An implementation
// that parallelizes across independent programs must serialize access.
type RunOutcome struct {
	// PlanID is the plan this outcome belongs to.
	PlanID string `json:"plan_id"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Succeeded holds the entity identifiers whose mutation was accepted.
	Succeeded []string `json:"succeeded"`

	// Skipped holds the entities that needed no mutation.
	Skipped []string `json:"skipped"`

	// Deferred holds the entities skipped because their resource was busy
	// in CI mode. Deferrals never affect the exit code but are reported
	// distinctly so CI logs can tell "nothing to do" from "skipped busy".
	Deferred []string `json:"deferred"`

	// Failed maps entity identifiers to their failure cause.
	Failed map[string]error `json:"-"`

	// Results holds each result in completion order.
	Results []ActionResult `json:"results"`
}

// NewRunOutcome creates an empty outcome for a plan.
func NewRunOutcome(planID string) *RunOutcome {
	return &RunOutcome{
		PlanID:    planID,
		StartedAt: time.Now(),
		Failed:    make(map[string]error),
	}
}

// Record stores one terminal action result.
func (o *RunOutcome) Record(r ActionResult) {
	o.Results = append(o.Results, r)
	switch r.Status {
	case StatusSucceeded:
		o.Succeeded = append(o.Succeeded, r.EntityID)
	case StatusSkipped:
		o.Skipped = append(o.Skipped, r.EntityID)
	case StatusDeferred:
		o.Deferred = append(o.Deferred, r.EntityID)
	case StatusFailed:
		o.Failed[r.EntityID] = r.Err
	}
}

// Merge folds another outcome into this one, preserving completion order.
func (o *RunOutcome) Merge(other *RunOutcome) {
	for _, r := range other.Results {
		o.Record(r)
	}
}

// OK reports whether the run had no hard failures.
func (o *RunOutcome) OK() bool {
	return len(o.Failed) == 0
}

// ExitCode returns the process exit code for this run: zero only when no
// entity failed. Deferred entities do not affect the exit code.
func (o *RunOutcome) ExitCode() int {
	if o.OK() {
		return 0
	}
	return 1
}

// FailedEntities returns the failed entity identifiers in sorted order.
func (o *RunOutcome) FailedEntities() []string {
	entities := make([]string, 0, len(o.Failed))
	for id := range o.Failed {
		entities = append(entities, id)
	}
	sort.Strings(entities)
	return entities
}
