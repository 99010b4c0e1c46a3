package reconcile

import "context"

// ReadinessChecker reads the busy/ready state of a platform resource.
// Readiness transitions happen server-side as a side effect of mutations;
// the coordinator only ever reads it.
type ReadinessChecker interface {
	// Readiness returns the current readiness of the resource.
	Readiness(ctx context.Context, ref ResourceRef) (Readiness, error)
}

// Mutator issues the mutating call for one action. Implementations know the
// concrete payload type carried by the actions of their batch (variables,
// certificates, domains).
type Mutator interface {
	// Mutate submits the create or update request for the action. A nil
	// return means the server accepted the request, not that the change
	// is live.
	Mutate(ctx context.Context, action Action) error
}

// VariableStore fetches the current variable set of a resource.
type VariableStore interface {
	// Variables returns all variables currently set on the resource.
	Variables(ctx context.Context, ref ResourceRef) ([]RemoteVariable, error)
}
