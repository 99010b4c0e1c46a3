package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// Domain is a domain registration as listed by the platform.
type Domain struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	CertificateID int64  `json:"certificateId"`
	EnvironmentID int64  `json:"environmentId"`
}

// DomainRegistration is the payload submitted when registering a domain
// against an environment.
type DomainRegistration struct {
	// Name is the fully qualified domain name.
	Name string `json:"name"`

	// DNSTxtRecord is the generated ownership-verification record the
	// operator must publish in the domain's zone.
	DNSTxtRecord string `json:"dnsTxtRecord"`

	// DNSZone is the zone the verification record belongs to.
	DNSZone string `json:"dnsZone"`

	// CertificateID is the managed certificate serving the domain.
	CertificateID int64 `json:"certificateId"`

	// EnvironmentID is the environment the domain points at.
	EnvironmentID int64 `json:"environmentId"`
}

// domainsResponse is the wire model of the domain list endpoint.
type domainsResponse struct {
	Embedded struct {
		Domains []Domain `json:"domains"`
	} `json:"_embedded"`
	TotalNumberOfItems int `json:"_totalNumberOfItems"`
}

// Domains lists the domain registrations of a program.
func (c *Client) Domains(ctx context.Context, programID int64) ([]Domain, error) {
	path := fmt.Sprintf("api/program/%d/domainNames", programID)

	var all []Domain
	for start := 0; ; start += listPageSize {
		var resp domainsResponse
		if err := c.do(ctx, "GET", path, pageQuery(start, listPageSize), nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Embedded.Domains...)
		if len(resp.Embedded.Domains) < listPageSize || len(all) >= resp.TotalNumberOfItems {
			return all, nil
		}
	}
}

// CreateDomain registers a domain name against an environment.
func (c *Client) CreateDomain(ctx context.Context, programID int64, reg *DomainRegistration) error {
	path := fmt.Sprintf("api/program/%d/domainNames", programID)
	return c.do(ctx, "POST", path, nil, reg, nil)
}

// VerificationTxtRecord generates the DNS TXT record proving domain
// ownership for one environment. The record embeds a fresh UUID, so each
// registration attempt gets a distinct token.
func VerificationTxtRecord(domain string, programID, environmentID int64) string {
	return fmt.Sprintf("nimbus-site-verification=%s/%d/%d/%s",
		domain, programID, environmentID, uuid.New().String())
}

// DomainMutator implements reconcile.Mutator for domain plans. Domains are
// create-only: the platform manages their lifecycle after registration.
type DomainMutator struct {
	client *Client
}

// NewDomainMutator creates the mutator for domain batches.
func NewDomainMutator(client *Client) *DomainMutator {
	return &DomainMutator{client: client}
}

// Mutate registers the domain carried by the action.
func (m *DomainMutator) Mutate(ctx context.Context, action reconcile.Action) error {
	reg, ok := action.Payload.(*DomainRegistration)
	if !ok {
		return reconcile.NewValidationError(
			fmt.Sprintf("action %s carries no domain payload", action.EntityID), nil)
	}
	return m.client.CreateDomain(ctx, action.Resource.ProgramID, reg)
}

// PlanDomains plans domain registrations for a program: domains already
// registered are skipped, the rest are created. Domains have no update
// operation and no busy state.
func PlanDomains(programID int64, desired []DomainRegistration, existing []Domain) (*reconcile.Plan, error) {
	seen := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if _, dup := seen[d.Name]; dup {
			return nil, reconcile.NewValidationError(
				fmt.Sprintf("duplicate domain name %q in desired input", d.Name), nil).
				WithCode(reconcile.ErrCodeDuplicateName)
		}
		seen[d.Name] = struct{}{}
	}

	existingByName := make(map[string]Domain, len(existing))
	for _, d := range existing {
		existingByName[d.Name] = d
	}

	plan := reconcile.NewPlan()
	for i := range desired {
		d := &desired[i]
		action := reconcile.Action{
			EntityID: fmt.Sprintf("program/%d/domain/%s", programID, d.Name),
			Resource: reconcile.ResourceRef{ProgramID: programID, Type: reconcile.ResourceProgram},
			Payload:  d,
		}
		if _, ok := existingByName[d.Name]; ok {
			action.Type = reconcile.ActionSkip
			action.Reason = "already registered"
		} else {
			action.Type = reconcile.ActionCreate
		}
		plan.Append(action)
	}
	return plan, nil
}
