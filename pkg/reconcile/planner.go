package reconcile

import "fmt"

// PlanVariables compares desired variables against the remote variable set
// and produces an ordered action plan. Matching key is the variable name,
// case-sensitive. Duplicate names in the desired input are a validation
// error raised before any action is planned.
//
// Rule table:
//   - no remote entry                          -> Create
//   - remote entry, kind changed               -> Update (kind change forces rewrite)
//   - remote entry, secretString               -> Update (remote value is opaque)
//   - remote entry, string, value differs      -> Update
//   - remote entry, string, value identical    -> Skip
//
// SecretString variables are always re-submitted when a remote entry exists:
// the remote value cannot be compared, so idempotence is only guaranteed for
// string variables.
func PlanVariables(ref ResourceRef, desired []DesiredVariable, remote []RemoteVariable) (*Plan, error) {
	seen := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if _, dup := seen[d.Name]; dup {
			return nil, NewValidationError(
				fmt.Sprintf("duplicate variable name %q in desired input", d.Name), nil).
				WithCode(ErrCodeDuplicateName).
				WithEntity(variableEntityID(ref, d.Name))
		}
		seen[d.Name] = struct{}{}
		if err := d.Kind.Validate(); err != nil {
			return nil, NewValidationError("invalid desired variable", err).
				WithCode(ErrCodeInvalidKind).
				WithEntity(variableEntityID(ref, d.Name))
		}
	}

	remoteByName := make(map[string]RemoteVariable, len(remote))
	for _, r := range remote {
		remoteByName[r.Name] = r
	}

	plan := NewPlan()
	plan.Actions = make([]Action, 0, len(desired))

	for _, d := range desired {
		d := d
		action := Action{
			EntityID: variableEntityID(ref, d.Name),
			Resource: ref,
			Payload:  &d,
		}

		r, exists := remoteByName[d.Name]
		switch {
		case !exists:
			action.Type = ActionCreate
		case d.Kind != r.Kind:
			action.Type = ActionUpdate
			action.Reason = "kind changed"
		case d.Kind == KindSecretString:
			// Remote secret values are opaque; always re-submit.
			action.Type = ActionUpdate
			action.Reason = "secret value not comparable"
		case d.Value != r.Value:
			action.Type = ActionUpdate
		default:
			action.Type = ActionSkip
			action.Reason = "unchanged"
		}

		plan.Append(action)
	}

	return plan, nil
}

// variableEntityID builds the stable entity identifier for a variable.
func variableEntityID(ref ResourceRef, name string) string {
	return fmt.Sprintf("%s/var/%s", ref, name)
}
