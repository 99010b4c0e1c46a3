package certs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

func TestPreflight_AllFilesPresent(t *testing.T) {
	dir := t.TempDir()
	notBefore, notAfter := validWindow()
	desired := writeTestCert(t, dir, "web", 1001, notBefore, notAfter)

	if err := Preflight(dir, []DesiredCertificate{desired}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestPreflight_MissingKeyFile(t *testing.T) {
	dir := t.TempDir()
	notBefore, notAfter := validWindow()
	desired := writeTestCert(t, dir, "web", 1001, notBefore, notAfter)
	if err := os.Remove(filepath.Join(dir, desired.KeyFile)); err != nil {
		t.Fatal(err)
	}

	err := Preflight(dir, []DesiredCertificate{desired})
	if err == nil {
		t.Fatal("Expected error for missing key file, got nil")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodePreflightMissingFile {
		t.Errorf("Expected preflight code, got %s", reconcile.CodeOf(err))
	}
	// One bad file aborts the whole batch before any network call.
	if !reconcile.IsFatal(err) {
		t.Error("Expected preflight failure to abort the batch")
	}
}

func TestPreflight_GarbageCertificateFile(t *testing.T) {
	dir := t.TempDir()
	notBefore, notAfter := validWindow()
	desired := writeTestCert(t, dir, "web", 1001, notBefore, notAfter)
	if err := os.WriteFile(filepath.Join(dir, desired.CertificateFile), []byte("not a cert"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := Preflight(dir, []DesiredCertificate{desired})
	if err == nil {
		t.Fatal("Expected error for unparsable certificate, got nil")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Errorf("Expected invalid-file message, got: %v", err)
	}
}

func TestPreflight_ReportsAllIssues(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	a := writeTestCert(t, dir, "a", 1, now.Add(-time.Hour), now.Add(time.Hour))
	b := writeTestCert(t, dir, "b", 2, now.Add(-time.Hour), now.Add(time.Hour))
	if err := os.Remove(filepath.Join(dir, a.KeyFile)); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, b.ChainFile)); err != nil {
		t.Fatal(err)
	}

	err := Preflight(dir, []DesiredCertificate{a, b})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	// Every issue is listed, not just the first.
	if !strings.Contains(err.Error(), `cert "a"`) || !strings.Contains(err.Error(), `cert "b"`) {
		t.Errorf("Expected both certificates mentioned, got: %v", err)
	}
}

func TestPreflight_KeyNotParsedAsX509(t *testing.T) {
	// Key files only need to be readable; they are never parsed.
	dir := t.TempDir()
	notBefore, notAfter := validWindow()
	desired := writeTestCert(t, dir, "web", 1001, notBefore, notAfter)
	if err := os.WriteFile(filepath.Join(dir, desired.KeyFile), []byte("opaque key material"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Preflight(dir, []DesiredCertificate{desired}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
