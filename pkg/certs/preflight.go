package certs

import (
	"fmt"
	"os"
	"strings"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// Preflight verifies that every referenced certificate, chain and key file
// exists and is readable, and that certificate and chain files parse as
// X.509. It must run before any network call of a batch: a single bad
// reference aborts the entire batch, preventing partial application across
// multiple certificates. The returned error lists every issue found.
func Preflight(baseDir string, desired []DesiredCertificate) error {
	var issues []string

	for _, d := range desired {
		certPath := ResolvePath(baseDir, d.CertificateFile)
		chainPath := ResolvePath(baseDir, d.ChainFile)
		keyPath := ResolvePath(baseDir, d.KeyFile)

		issues = append(issues, checkParsable(d.Name, "certificate", certPath)...)
		issues = append(issues, checkParsable(d.Name, "chain", chainPath)...)
		issues = append(issues, checkReadable(d.Name, "key", keyPath)...)
	}

	if len(issues) == 0 {
		return nil
	}
	return reconcile.NewValidationError(
		fmt.Sprintf("certificate preflight failed:\n  %s", strings.Join(issues, "\n  ")), nil).
		WithCode(reconcile.ErrCodePreflightMissingFile)
}

func checkReadable(name, role, path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("cert %q: %s file missing or unreadable: %s", name, role, path)}
	}
	f.Close()
	return nil
}

func checkParsable(name, role, path string) []string {
	if issues := checkReadable(name, role, path); issues != nil {
		return issues
	}
	if _, err := ReadMeta(path); err != nil {
		return []string{fmt.Sprintf("cert %q: %s file invalid: %s", name, role, path)}
	}
	return nil
}
