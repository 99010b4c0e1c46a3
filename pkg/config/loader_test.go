package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
	"github.com/nimbusops/nimbusctl/pkg/secrets"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environments.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validInput = `
programs:
  - id: 7
    environments:
      - id: 2
        variables:
          - name: FOO
            value: bar
            type: string
          - name: TOKEN
            value: hunter2
            type: secretString
        domains:
          - domainname: www.example.com
            certificate_id: 42
    pipelines:
      - id: 3
        variables:
          - name: PIPELINE_VAR
            value: "1"
            type: string
    certificates:
      - name: web
        certificate: certs/web.crt
        chain: certs/web-chain.crt
        key: certs/web.key
`

func TestLoad_ValidInput(t *testing.T) {
	path := writeInput(t, validInput)

	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(input.Programs) != 1 {
		t.Fatalf("Expected 1 program, got %d", len(input.Programs))
	}
	p := input.Programs[0]
	if p.ID != 7 || len(p.Environments) != 1 || len(p.Pipelines) != 1 || len(p.Certificates) != 1 {
		t.Errorf("Unexpected program structure: %+v", p)
	}
	if input.BaseDir() != filepath.Dir(path) {
		t.Errorf("Expected base dir %s, got %s", filepath.Dir(path), input.BaseDir())
	}
	if p.Environments[0].Variables[1].Kind != reconcile.KindSecretString {
		t.Errorf("Unexpected kind: %s", p.Environments[0].Variables[1].Kind)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeInput(t, `
programs:
  - id: 7
    enviroments:
      - id: 2
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for misspelled field, got nil")
	}
	if reconcile.ClassOf(err) != reconcile.ErrorClassValidation {
		t.Errorf("Expected validation class, got %s", reconcile.ClassOf(err))
	}
}

func TestLoad_InvalidKindRejected(t *testing.T) {
	path := writeInput(t, `
programs:
  - id: 7
    environments:
      - id: 2
        variables:
          - name: FOO
            value: bar
            type: secret
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for invalid variable kind, got nil")
	}
}

func TestLoad_MissingProgramID(t *testing.T) {
	path := writeInput(t, `
programs:
  - environments:
      - id: 2
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for missing program id, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if !reconcile.IsFatal(err) {
		t.Error("Expected a load failure to be fatal")
	}
}

func TestVariableBatches(t *testing.T) {
	path := writeInput(t, validInput)
	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	batches, err := input.VariableBatches(nil)
	if err != nil {
		t.Fatalf("VariableBatches failed: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	env := batches[0]
	if env.Ref.Type != reconcile.ResourceEnvironment || env.Ref.ID != 2 {
		t.Errorf("Unexpected first batch ref: %+v", env.Ref)
	}
	if len(env.Desired) != 2 || env.Desired[0].Name != "FOO" {
		t.Errorf("Unexpected environment variables: %+v", env.Desired)
	}
	pipe := batches[1]
	if pipe.Ref.Type != reconcile.ResourcePipeline || pipe.Ref.ID != 3 {
		t.Errorf("Unexpected second batch ref: %+v", pipe.Ref)
	}
}

func TestVariableBatches_ResolvesEncryptedValues(t *testing.T) {
	codec, err := secrets.NewCodec([]byte("test key"))
	if err != nil {
		t.Fatal(err)
	}
	wire, err := codec.Encrypt("cleartext")
	if err != nil {
		t.Fatal(err)
	}

	path := writeInput(t, `
programs:
  - id: 7
    environments:
      - id: 2
        variables:
          - name: TOKEN
            value: "`+wire+`"
            type: secretString
`)
	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	batches, err := input.VariableBatches(codec)
	if err != nil {
		t.Fatalf("VariableBatches failed: %v", err)
	}
	if batches[0].Desired[0].Value != "cleartext" {
		t.Errorf("Expected resolved cleartext, got %q", batches[0].Desired[0].Value)
	}
}

func TestVariableBatches_EncryptedValueWithoutKey(t *testing.T) {
	path := writeInput(t, `
programs:
  - id: 7
    environments:
      - id: 2
        variables:
          - name: TOKEN
            value: "$enc dG9rZW4="
            type: secretString
`)
	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = input.VariableBatches(nil)
	if err == nil {
		t.Fatal("Expected error for encrypted value without a key, got nil")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodeMissingKey {
		t.Errorf("Expected missing key code, got %s", reconcile.CodeOf(err))
	}
}

func TestVariableBatches_EncryptedPlainValueRejected(t *testing.T) {
	codec, err := secrets.NewCodec([]byte("test key"))
	if err != nil {
		t.Fatal(err)
	}
	wire, err := codec.Encrypt("cleartext")
	if err != nil {
		t.Fatal(err)
	}

	path := writeInput(t, `
programs:
  - id: 7
    environments:
      - id: 2
        variables:
          - name: FOO
            value: "`+wire+`"
            type: string
`)
	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = input.VariableBatches(codec)
	if err == nil {
		t.Fatal("Expected error for encrypted value on a string variable, got nil")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodeEncryptedPlainValue {
		t.Errorf("Unexpected code: %s", reconcile.CodeOf(err))
	}
}

func TestCertificateBatches(t *testing.T) {
	path := writeInput(t, validInput)
	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	batches := input.CertificateBatches()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}
	if batches[0].ProgramID != 7 || batches[0].Desired[0].Name != "web" {
		t.Errorf("Unexpected batch: %+v", batches[0])
	}
}

func TestDomainBatches(t *testing.T) {
	path := writeInput(t, validInput)
	input, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	batches := input.DomainBatches()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}
	reg := batches[0].Desired[0]
	if reg.Name != "www.example.com" || reg.CertificateID != 42 || reg.EnvironmentID != 2 {
		t.Errorf("Unexpected registration: %+v", reg)
	}
	if reg.DNSTxtRecord == "" {
		t.Error("Expected a generated verification record")
	}
	// Zone defaults to the domain itself, dot-terminated.
	if reg.DNSZone != "www.example.com." {
		t.Errorf("Unexpected default zone: %q", reg.DNSZone)
	}
}
