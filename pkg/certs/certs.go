// Package certs specializes planning for TLS certificates: matching desired
// certificates against the platform's inventory by id or name, comparing
// serial numbers computed from local files, and preflighting file references
// before any network call is made.
package certs

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DesiredCertificate is a certificate as declared in an input file. File
// paths are resolved relative to the input file's directory and treated as
// immutable for the duration of one run.
type DesiredCertificate struct {
	// Name is the certificate name on the platform.
	Name string `yaml:"name" json:"name" validate:"required"`

	// ID optionally pins the remote certificate to update. When absent,
	// matching falls back to the name.
	ID *int64 `yaml:"id,omitempty" json:"id,omitempty"`

	// CertificateFile is the path to the PEM leaf certificate.
	CertificateFile string `yaml:"certificate" json:"certificate" validate:"required"`

	// ChainFile is the path to the PEM chain.
	ChainFile string `yaml:"chain" json:"chain" validate:"required"`

	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key" json:"key" validate:"required"`
}

// RemoteCertificate is a certificate as listed by the platform. Identity is
// established by name when the desired entry has no id, else by id.
type RemoteCertificate struct {
	// ID is the platform-assigned certificate id.
	ID int64 `json:"id"`

	// Name is the certificate name.
	Name string `json:"name"`

	// SerialNumber is the decimal serial number string.
	SerialNumber string `json:"serialNumber"`
}

// Upload is the payload submitted for certificate create and update calls.
// PEM contents are flattened to single lines, as the platform expects.
type Upload struct {
	// ID is the remote certificate to update; nil for creates.
	ID *int64 `json:"id,omitempty"`

	// Name is the certificate name.
	Name string `json:"name"`

	// Certificate is the flattened leaf PEM.
	Certificate string `json:"certificate"`

	// Chain is the flattened chain PEM.
	Chain string `json:"chain"`

	// PrivateKey is the flattened key PEM.
	PrivateKey string `json:"privateKey"`
}

// Store lists and mutates the certificate inventory of a program.
type Store interface {
	// Certificates returns all certificates of the program.
	Certificates(ctx context.Context, programID int64) ([]RemoteCertificate, error)

	// CreateCertificate uploads a new certificate.
	CreateCertificate(ctx context.Context, programID int64, upload *Upload) error

	// UpdateCertificate replaces an existing certificate.
	UpdateCertificate(ctx context.Context, programID int64, upload *Upload) error
}

// Meta is the identity-relevant metadata extracted from a local certificate
// file. The serial is the decimal rendering of the certificate's serial
// number, matching what the platform reports.
type Meta struct {
	SerialNumber string
	NotBefore    time.Time
	NotAfter     time.Time
}

// Valid reports whether the certificate's validity window covers now.
func (m *Meta) Valid(now time.Time) bool {
	return !now.Before(m.NotBefore) && !now.After(m.NotAfter)
}

// ReadMeta parses the first CERTIFICATE block of a PEM file, or a raw DER
// file, and extracts its identity metadata.
func ReadMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w", path, err)
	}

	der := data
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			der = block.Bytes
			break
		}
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse certificate %s: %w", path, err)
	}

	return &Meta{
		SerialNumber: cert.SerialNumber.String(),
		NotBefore:    cert.NotBefore,
		NotAfter:     cert.NotAfter,
	}, nil
}

// ResolvePath resolves a certificate file reference against the input
// file's directory. Absolute paths pass through unchanged.
func ResolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// loadPEM reads a PEM file and flattens it to a single line.
func loadPEM(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b != '\n' && b != '\r' {
			out = append(out, b)
		}
	}
	return string(out), nil
}
