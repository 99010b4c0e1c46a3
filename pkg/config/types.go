// Package config loads and validates the declarative YAML input files that
// describe desired variables, certificates and domains per program, and
// resolves them into the batches the reconciliation core consumes.
package config

import (
	"github.com/nimbusops/nimbusctl/pkg/certs"
	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// InputFile is the root of a declarative input document.
type InputFile struct {
	// Programs lists the programs to reconcile.
	Programs []ProgramConfig `yaml:"programs" validate:"required,min=1,dive"`

	// baseDir is the directory of the input file; certificate file paths
	// are resolved against it.
	baseDir string
}

// BaseDir returns the directory the input file was loaded from.
func (f *InputFile) BaseDir() string { return f.baseDir }

// ProgramConfig declares the desired state under one program.
type ProgramConfig struct {
	// ID is the program ID.
	ID int64 `yaml:"id" validate:"required,gt=0"`

	// Environments lists environments with desired variables and domains.
	Environments []EnvironmentConfig `yaml:"environments,omitempty" validate:"dive"`

	// Pipelines lists pipelines with desired variables.
	Pipelines []PipelineConfig `yaml:"pipelines,omitempty" validate:"dive"`

	// Certificates lists the TLS certificates managed under the program.
	Certificates []certs.DesiredCertificate `yaml:"certificates,omitempty" validate:"dive"`
}

// EnvironmentConfig declares the desired state of one environment.
type EnvironmentConfig struct {
	// ID is the environment ID.
	ID int64 `yaml:"id" validate:"required,gt=0"`

	// Variables are the desired environment variables.
	Variables []VariableInput `yaml:"variables,omitempty" validate:"dive"`

	// Domains are the domain registrations pointing at this environment.
	Domains []DomainInput `yaml:"domains,omitempty" validate:"dive"`
}

// PipelineConfig declares the desired state of one pipeline.
type PipelineConfig struct {
	// ID is the pipeline ID.
	ID int64 `yaml:"id" validate:"required,gt=0"`

	// Variables are the desired pipeline variables.
	Variables []VariableInput `yaml:"variables,omitempty" validate:"dive"`
}

// VariableInput is one desired variable as written in the input file. The
// value may be plaintext or an encrypted reference ("$enc <token>"); it is
// parsed and resolved at load time, before planning.
type VariableInput struct {
	// Name is the variable name.
	Name string `yaml:"name" validate:"required"`

	// Value is the raw value from the file.
	Value string `yaml:"value"`

	// Kind is the variable kind.
	Kind reconcile.VariableKind `yaml:"type" validate:"required,oneof=string secretString"`

	// Service optionally scopes the variable to a service tier.
	Service string `yaml:"service,omitempty"`
}

// DomainInput is one desired domain registration.
type DomainInput struct {
	// Name is the fully qualified domain name.
	Name string `yaml:"domainname" validate:"required,fqdn"`

	// CertificateID is the managed certificate serving the domain.
	CertificateID int64 `yaml:"certificate_id" validate:"required,gt=0"`

	// DNSZone is the zone the verification TXT record belongs to.
	DNSZone string `yaml:"dns_zone,omitempty"`
}
