package gateway

import (
	"context"
	"fmt"

	"github.com/nimbusops/nimbusctl/pkg/certs"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// certificatesResponse is the wire model of the certificate list endpoint.
type certificatesResponse struct {
	Embedded struct {
		Certificates []certs.RemoteCertificate `json:"certificates"`
	} `json:"_embedded"`
	TotalNumberOfItems int `json:"_totalNumberOfItems"`
}

// Certificates implements certs.Store: it walks the paged list endpoint
// until the full inventory is fetched.
func (c *Client) Certificates(ctx context.Context, programID int64) ([]certs.RemoteCertificate, error) {
	path := fmt.Sprintf("api/program/%d/certificates", programID)

	var all []certs.RemoteCertificate
	for start := 0; ; start += listPageSize {
		var resp certificatesResponse
		if err := c.do(ctx, "GET", path, pageQuery(start, listPageSize), nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Embedded.Certificates...)
		if len(resp.Embedded.Certificates) < listPageSize || len(all) >= resp.TotalNumberOfItems {
			return all, nil
		}
	}
}

// CreateCertificate uploads a new certificate to the program.
func (c *Client) CreateCertificate(ctx context.Context, programID int64, upload *certs.Upload) error {
	path := fmt.Sprintf("api/program/%d/certificates", programID)
	return c.do(ctx, "POST", path, nil, upload, nil)
}

// UpdateCertificate replaces the certificate pinned by upload.ID.
func (c *Client) UpdateCertificate(ctx context.Context, programID int64, upload *certs.Upload) error {
	if upload.ID == nil {
		return reconcile.NewValidationError("certificate update requires an id", nil)
	}
	path := fmt.Sprintf("api/program/%d/certificate/%d", programID, *upload.ID)
	return c.do(ctx, "PUT", path, nil, upload, nil)
}

// CertificateMutator implements reconcile.Mutator for certificate plans.
type CertificateMutator struct {
	client *Client
}

// NewCertificateMutator creates the mutator for certificate batches.
func NewCertificateMutator(client *Client) *CertificateMutator {
	return &CertificateMutator{client: client}
}

// Mutate submits the certificate upload carried by the action.
func (m *CertificateMutator) Mutate(ctx context.Context, action reconcile.Action) error {
	upload, ok := action.Payload.(*certs.Upload)
	if !ok {
		return reconcile.NewValidationError(
			fmt.Sprintf("action %s carries no certificate payload", action.EntityID), nil)
	}
	if action.Type == reconcile.ActionUpdate {
		return m.client.UpdateCertificate(ctx, action.Resource.ProgramID, upload)
	}
	return m.client.CreateCertificate(ctx, action.Resource.ProgramID, upload)
}
