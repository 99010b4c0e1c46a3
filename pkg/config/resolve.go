package config

import (
	"fmt"

	"github.com/nimbusops/nimbusctl/pkg/certs"
	"github.com/nimbusops/nimbusctl/pkg/gateway"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
	"github.com/nimbusops/nimbusctl/pkg/secrets"
)

// VariableBatch is the desired variable set of one environment or pipeline,
// with every secret reference already resolved to cleartext.
type VariableBatch struct {
	// Ref is the owning resource.
	Ref reconcile.ResourceRef

	// Desired are the resolved variables in input order.
	Desired []reconcile.DesiredVariable
}

// CertificateBatch is the desired certificate set of one program.
type CertificateBatch struct {
	ProgramID int64
	Desired   []certs.DesiredCertificate
}

// DomainBatch is the desired domain registrations of one program.
type DomainBatch struct {
	ProgramID int64
	Desired   []gateway.DomainRegistration
}

// VariableBatches resolves every declared variable into per-resource
// batches. Resolution fails on an encrypted reference with kind "string",
// and on any encrypted reference when codec is nil (no key configured);
// both are fatal before planning.
func (f *InputFile) VariableBatches(codec *secrets.Codec) ([]VariableBatch, error) {
	var batches []VariableBatch

	for _, p := range f.Programs {
		for _, e := range p.Environments {
			ref := reconcile.ResourceRef{
				ProgramID: p.ID,
				Type:      reconcile.ResourceEnvironment,
				ID:        e.ID,
			}
			batch, err := resolveBatch(codec, ref, e.Variables)
			if err != nil {
				return nil, err
			}
			if batch != nil {
				batches = append(batches, *batch)
			}
		}
		for _, pl := range p.Pipelines {
			ref := reconcile.ResourceRef{
				ProgramID: p.ID,
				Type:      reconcile.ResourcePipeline,
				ID:        pl.ID,
			}
			batch, err := resolveBatch(codec, ref, pl.Variables)
			if err != nil {
				return nil, err
			}
			if batch != nil {
				batches = append(batches, *batch)
			}
		}
	}

	return batches, nil
}

func resolveBatch(codec *secrets.Codec, ref reconcile.ResourceRef, inputs []VariableInput) (*VariableBatch, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	desired := make([]reconcile.DesiredVariable, 0, len(inputs))
	for _, in := range inputs {
		value, err := codec.Resolve(secrets.ParseValue(in.Value), in.Kind)
		if err != nil {
			var re *reconcile.ReconcileError
			if e, ok := err.(*reconcile.ReconcileError); ok {
				re = e.WithEntity(fmt.Sprintf("%s/var/%s", ref, in.Name))
			} else {
				re = reconcile.NewCodecError("value resolution failed", err)
			}
			return nil, re
		}
		desired = append(desired, reconcile.DesiredVariable{
			Name:    in.Name,
			Value:   value,
			Kind:    in.Kind,
			Service: in.Service,
		})
	}

	return &VariableBatch{Ref: ref, Desired: desired}, nil
}

// CertificateBatches groups the declared certificates per program.
func (f *InputFile) CertificateBatches() []CertificateBatch {
	var batches []CertificateBatch
	for _, p := range f.Programs {
		if len(p.Certificates) == 0 {
			continue
		}
		batches = append(batches, CertificateBatch{ProgramID: p.ID, Desired: p.Certificates})
	}
	return batches
}

// DomainBatches builds the desired domain registrations per program, with
// a fresh verification TXT record generated per domain.
func (f *InputFile) DomainBatches() []DomainBatch {
	var batches []DomainBatch
	for _, p := range f.Programs {
		var desired []gateway.DomainRegistration
		for _, e := range p.Environments {
			for _, d := range e.Domains {
				zone := d.DNSZone
				if zone == "" {
					zone = d.Name + "."
				}
				desired = append(desired, gateway.DomainRegistration{
					Name:          d.Name,
					DNSTxtRecord:  gateway.VerificationTxtRecord(d.Name, p.ID, e.ID),
					DNSZone:       zone,
					CertificateID: d.CertificateID,
					EnvironmentID: e.ID,
				})
			}
		}
		if len(desired) > 0 {
			batches = append(batches, DomainBatch{ProgramID: p.ID, Desired: desired})
		}
	}
	return batches
}
