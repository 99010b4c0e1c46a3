package certs

import (
	"fmt"
	"time"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// PlanCertificates matches desired certificates against the program's remote
// inventory and produces an action plan. Callers must run Preflight first;
// the matcher assumes every referenced file is readable.
//
// Matching: by id when the desired entry specifies one, else by exact name.
// When several remote certificates share a name and no id is given, the
// first match wins; which one that is depends on the platform's list order.
//
// Decision: no match -> Create; matching serial -> Skip; differing serial ->
// Update. Certificates outside their validity window are planned as Failed
// without any network call, and the rest of the batch continues:
// certificate batches use independent-failure semantics.
func PlanCertificates(programID int64, baseDir string, desired []DesiredCertificate, remote []RemoteCertificate) (*reconcile.Plan, error) {
	seen := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if _, dup := seen[d.Name]; dup {
			return nil, reconcile.NewValidationError(
				fmt.Sprintf("duplicate certificate name %q in desired input", d.Name), nil).
				WithCode(reconcile.ErrCodeDuplicateName)
		}
		seen[d.Name] = struct{}{}
	}

	ref := reconcile.ResourceRef{ProgramID: programID, Type: reconcile.ResourceProgram}
	plan := reconcile.NewPlan()
	plan.Actions = make([]reconcile.Action, 0, len(desired))
	now := time.Now()

	for _, d := range desired {
		action := reconcile.Action{
			EntityID: certEntityID(programID, d.Name),
			Resource: ref,
		}

		meta, err := ReadMeta(ResolvePath(baseDir, d.CertificateFile))
		if err != nil {
			action.Type = reconcile.ActionFailed
			action.Reason = "certificate file unparsable"
			action.Err = reconcile.NewValidationError("certificate file unparsable", err).
				WithCode(reconcile.ErrCodePreflightMissingFile).
				WithEntity(action.EntityID)
			plan.Append(action)
			continue
		}

		if !meta.Valid(now) {
			action.Type = reconcile.ActionFailed
			action.Reason = "certificate outside its validity window"
			action.Err = reconcile.NewValidationError(
				fmt.Sprintf("certificate %q is not valid at %s (notBefore=%s notAfter=%s)",
					d.Name, now.Format(time.RFC3339),
					meta.NotBefore.Format(time.RFC3339), meta.NotAfter.Format(time.RFC3339)), nil).
				WithEntity(action.EntityID)
			plan.Append(action)
			continue
		}

		upload, err := buildUpload(baseDir, d)
		if err != nil {
			action.Type = reconcile.ActionFailed
			action.Reason = "certificate files unreadable"
			action.Err = reconcile.NewValidationError("certificate files unreadable", err).
				WithCode(reconcile.ErrCodePreflightMissingFile).
				WithEntity(action.EntityID)
			plan.Append(action)
			continue
		}
		action.Payload = upload

		existing := matchExisting(remote, d)
		switch {
		case existing == nil:
			// A pinned id with no remote match is stale; the create
			// must not carry it.
			upload.ID = nil
			action.Type = reconcile.ActionCreate
		case existing.SerialNumber == meta.SerialNumber:
			action.Type = reconcile.ActionSkip
			action.Reason = "already current"
		default:
			upload.ID = &existing.ID
			action.Type = reconcile.ActionUpdate
			action.Reason = fmt.Sprintf("serial changed (remote %s, local %s)",
				existing.SerialNumber, meta.SerialNumber)
		}

		plan.Append(action)
	}

	return plan, nil
}

// matchExisting finds the remote certificate a desired entry refers to: by
// id when pinned, else the first exact name match.
func matchExisting(remote []RemoteCertificate, d DesiredCertificate) *RemoteCertificate {
	for i := range remote {
		if d.ID != nil {
			if remote[i].ID == *d.ID {
				return &remote[i]
			}
			continue
		}
		if remote[i].Name == d.Name {
			return &remote[i]
		}
	}
	return nil
}

// buildUpload loads and flattens the three PEM files of a desired entry.
func buildUpload(baseDir string, d DesiredCertificate) (*Upload, error) {
	certificate, err := loadPEM(ResolvePath(baseDir, d.CertificateFile))
	if err != nil {
		return nil, err
	}
	chain, err := loadPEM(ResolvePath(baseDir, d.ChainFile))
	if err != nil {
		return nil, err
	}
	key, err := loadPEM(ResolvePath(baseDir, d.KeyFile))
	if err != nil {
		return nil, err
	}
	return &Upload{
		ID:          d.ID,
		Name:        d.Name,
		Certificate: certificate,
		Chain:       chain,
		PrivateKey:  key,
	}, nil
}

func certEntityID(programID int64, name string) string {
	return fmt.Sprintf("program/%d/cert/%s", programID, name)
}
