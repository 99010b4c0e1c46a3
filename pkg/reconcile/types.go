package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VariableKind represents the type of a desired or remote variable.
type VariableKind string

const (
	// KindString is a plain variable whose value is stored and returned in
	// cleartext by the platform.
	KindString VariableKind = "string"

	// KindSecretString is a secret variable. The platform stores it opaquely
	// and never returns its value.
	KindSecretString VariableKind = "secretString"
)

// Validate checks if the variable kind is valid.
func (k VariableKind) Validate() error {
	switch k {
	case KindString, KindSecretString:
		return nil
	default:
		return fmt.Errorf("invalid variable kind: %s", k)
	}
}

// DesiredVariable is a variable as declared in an input file, with its value
// already resolved to cleartext. Secret resolution happens at load time, so
// the planner never sees an encrypted reference.
type DesiredVariable struct {
	// Name is the variable name, unique within one resource's variable set.
	Name string `json:"name"`

	// Value is the resolved cleartext value.
	Value string `json:"value"`

	// Kind is the variable kind (string or secretString).
	Kind VariableKind `json:"type"`

	// Service optionally scopes the variable to a service tier.
	Service string `json:"service,omitempty"`
}

// RemoteVariable is a variable as currently held by the platform. For
// secretString variables Value is always empty: the platform redacts them.
type RemoteVariable struct {
	// Name is the variable name.
	Name string `json:"name"`

	// Value is the cleartext value, or empty for secrets.
	Value string `json:"value,omitempty"`

	// Kind is the variable kind reported by the platform.
	Kind VariableKind `json:"type"`

	// Service is the service tier the variable is scoped to.
	Service string `json:"service,omitempty"`
}

// ResourceType identifies the type of platform resource that owns an entity.
type ResourceType string

const (
	// ResourceProgram is a program. Programs accept concurrent writes.
	ResourceProgram ResourceType = "program"

	// ResourceEnvironment is an environment. Environments enforce a
	// single-writer constraint while updating.
	ResourceEnvironment ResourceType = "environment"

	// ResourcePipeline is a pipeline. Pipelines enforce a single-writer
	// constraint while busy.
	ResourcePipeline ResourceType = "pipeline"
)

// ResourceRef identifies the platform resource an action mutates.
type ResourceRef struct {
	// ProgramID is the owning program.
	ProgramID int64 `json:"program_id"`

	// Type is the resource type.
	Type ResourceType `json:"type"`

	// ID is the environment or pipeline ID. Zero when Type is program.
	ID int64 `json:"id,omitempty"`
}

// SingleWriter reports whether the resource rejects concurrent configuration
// writes and therefore requires a readiness check before mutation.
func (r ResourceRef) SingleWriter() bool {
	return r.Type == ResourceEnvironment || r.Type == ResourcePipeline
}

// String returns a stable identifier for logging and entity keys.
func (r ResourceRef) String() string {
	if r.Type == ResourceProgram {
		return fmt.Sprintf("program/%d", r.ProgramID)
	}
	return fmt.Sprintf("program/%d/%s/%d", r.ProgramID, r.Type, r.ID)
}

// Readiness represents the busy/ready state of a platform resource.
type Readiness string

const (
	// ReadinessReady indicates the resource accepts configuration writes.
	ReadinessReady Readiness = "ready"

	// ReadinessBusy indicates the resource is mid-operation and rejects
	// concurrent writes.
	ReadinessBusy Readiness = "busy"

	// ReadinessUnknown indicates the state could not be determined. The
	// coordinator treats it as busy: never mutate an indeterminate resource.
	ReadinessUnknown Readiness = "unknown"
)

// ActionType represents the planned operation for one desired entity.
type ActionType string

const (
	// ActionCreate indicates the entity does not exist remotely.
	ActionCreate ActionType = "create"

	// ActionUpdate indicates the remote entity differs and must be rewritten.
	ActionUpdate ActionType = "update"

	// ActionSkip indicates the remote entity already matches.
	ActionSkip ActionType = "skip"

	// ActionFailed indicates the entity was rejected during planning and
	// must not be applied.
	ActionFailed ActionType = "failed"
)

// IsMutating returns true if applying the action issues a remote write.
func (a ActionType) IsMutating() bool {
	return a == ActionCreate || a == ActionUpdate
}

// Validate checks if the action type is valid.
func (a ActionType) Validate() error {
	switch a {
	case ActionCreate, ActionUpdate, ActionSkip, ActionFailed:
		return nil
	default:
		return fmt.Errorf("invalid action type: %s", a)
	}
}

// Action is one planned operation. Exactly one action is produced per desired
// entity per planning pass.
type Action struct {
	// EntityID identifies the entity, e.g. "program/1/environment/2/var/FOO".
	EntityID string `json:"entity_id"`

	// Type is the planned operation.
	Type ActionType `json:"type"`

	// Resource is the platform resource the mutation targets.
	Resource ResourceRef `json:"resource"`

	// Reason explains Skip and Failed actions.
	Reason string `json:"reason,omitempty"`

	// Err is the planning failure for Failed actions.
	Err error `json:"-"`

	// Payload is the entity to submit for Create and Update actions. The
	// batch's Mutator knows its concrete type.
	Payload any `json:"-"`
}

// PlanSummary aggregates the per-type counts of a plan.
type PlanSummary struct {
	Total    int `json:"total"`
	ToCreate int `json:"to_create"`
	ToUpdate int `json:"to_update"`
	ToSkip   int `json:"to_skip"`
	Failed   int `json:"failed"`
}

// NewPlan creates an empty plan with a fresh identifier.
func NewPlan() *Plan {
	return &Plan{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
}

// Plan is an ordered sequence of actions for one batch. Actions are applied
// strictly in order; there is no parallel fan-out because the platform's
// single-writer constraint makes concurrent mutation counterproductive.
type Plan struct {
	// ID is the unique identifier for this plan.
	ID string `json:"id"`

	// CreatedAt is when the plan was computed.
	CreatedAt time.Time `json:"created_at"`

	// Actions are the planned operations in input order.
	Actions []Action `json:"actions"`

	// Summary aggregates the action counts.
	Summary PlanSummary `json:"summary"`
}

// HasWork returns true if the plan contains at least one mutating action.
func (p *Plan) HasWork() bool {
	for _, a := range p.Actions {
		if a.Type.IsMutating() {
			return true
		}
	}
	return false
}

// Append adds an action and updates the summary.
func (p *Plan) Append(a Action) {
	p.Actions = append(p.Actions, a)
	p.Summary.Total++
	switch a.Type {
	case ActionCreate:
		p.Summary.ToCreate++
	case ActionUpdate:
		p.Summary.ToUpdate++
	case ActionSkip:
		p.Summary.ToSkip++
	case ActionFailed:
		p.Summary.Failed++
	}
}

// ActionStatus is the terminal state of one applied action.
type ActionStatus string

const (
	// StatusSucceeded indicates the server accepted the mutating request.
	// It does not mean the change is live; propagation is asynchronous.
	StatusSucceeded ActionStatus = "succeeded"

	// StatusSkipped indicates no mutation was needed.
	StatusSkipped ActionStatus = "skipped"

	// StatusDeferred indicates the resource was busy and CI mode skipped the
	// wait. Deferred entities do not fail the run.
	StatusDeferred ActionStatus = "deferred"

	// StatusFailed indicates the action failed terminally.
	StatusFailed ActionStatus = "failed"
)

// ActionResult is the outcome of applying a single action.
type ActionResult struct {
	// EntityID is the entity the action operated on.
	EntityID string `json:"entity_id"`

	// Status is the terminal status.
	Status ActionStatus `json:"status"`

	// Reason explains skipped and deferred results.
	Reason string `json:"reason,omitempty"`

	// Err is the failure cause for failed results.
	Err error `json:"-"`

	// Duration is how long the action took, including readiness waits.
	Duration time.Duration `json:"duration"`
}
