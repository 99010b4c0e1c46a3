package gateway

import (
	"context"
	"fmt"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// variablesResponse is the wire model of the variable list endpoints.
type variablesResponse struct {
	Embedded struct {
		Variables []reconcile.RemoteVariable `json:"variables"`
	} `json:"_embedded"`
}

// Variables implements reconcile.VariableStore for environments and
// pipelines.
func (c *Client) Variables(ctx context.Context, ref reconcile.ResourceRef) ([]reconcile.RemoteVariable, error) {
	path, err := variablesPath(ref)
	if err != nil {
		return nil, err
	}
	var resp variablesResponse
	if err := c.do(ctx, "GET", path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Variables, nil
}

// patchVariables submits a partial variable update. The platform applies
// each listed entry by name, creating or overwriting as needed.
func (c *Client) patchVariables(ctx context.Context, ref reconcile.ResourceRef, vars []reconcile.DesiredVariable) error {
	path, err := variablesPath(ref)
	if err != nil {
		return err
	}
	return c.do(ctx, "PATCH", path, nil, vars, nil)
}

func variablesPath(ref reconcile.ResourceRef) (string, error) {
	switch ref.Type {
	case reconcile.ResourceEnvironment:
		return fmt.Sprintf("api/program/%d/environment/%d/variables", ref.ProgramID, ref.ID), nil
	case reconcile.ResourcePipeline:
		return fmt.Sprintf("api/program/%d/pipeline/%d/variables", ref.ProgramID, ref.ID), nil
	default:
		return "", reconcile.NewValidationError(
			fmt.Sprintf("resource type %q has no variables", ref.Type), nil)
	}
}

// VariableMutator implements reconcile.Mutator for variable plans. Create
// and update are the same wire operation: a single-entry PATCH against the
// owning resource's variable list.
type VariableMutator struct {
	client *Client
}

// NewVariableMutator creates the mutator for variable batches.
func NewVariableMutator(client *Client) *VariableMutator {
	return &VariableMutator{client: client}
}

// Mutate submits the variable carried by the action.
func (m *VariableMutator) Mutate(ctx context.Context, action reconcile.Action) error {
	v, ok := action.Payload.(*reconcile.DesiredVariable)
	if !ok {
		return reconcile.NewValidationError(
			fmt.Sprintf("action %s carries no variable payload", action.EntityID), nil)
	}
	return m.client.patchVariables(ctx, action.Resource, []reconcile.DesiredVariable{*v})
}
