package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := testCodec(t)

	wire, err := codec.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if !strings.HasPrefix(wire, Marker+" ") {
		t.Fatalf("Expected marked wire value, got %q", wire)
	}

	plain, err := codec.Decrypt(wire)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plain != "hunter2" {
		t.Errorf("Expected round-trip to return hunter2, got %q", plain)
	}
}

func TestCodec_EncryptIsNonDeterministic(t *testing.T) {
	codec := testCodec(t)

	first, err := codec.Encrypt("same")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := codec.Encrypt("same")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	// Fresh salt and nonce per call.
	if first == second {
		t.Error("Expected distinct ciphertexts for the same plaintext")
	}
}

func TestCodec_DecryptBareToken(t *testing.T) {
	codec := testCodec(t)

	wire, err := codec.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	token := strings.TrimPrefix(wire, Marker+" ")

	plain, err := codec.Decrypt(token)
	if err != nil {
		t.Fatalf("Decrypt of bare token failed: %v", err)
	}
	if plain != "value" {
		t.Errorf("Expected value, got %q", plain)
	}
}

func TestCodec_DecryptWrongKey(t *testing.T) {
	codec := testCodec(t)
	wire, err := codec.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	other, err := NewCodec([]byte("a different passphrase"))
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	_, err = other.Decrypt(wire)
	if err == nil {
		t.Fatal("Expected decryption with the wrong key to fail")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodeDecryption {
		t.Errorf("Expected decryption_failed code, got %s", reconcile.CodeOf(err))
	}
}

func TestCodec_DecryptMalformed(t *testing.T) {
	codec := testCodec(t)

	for _, input := range []string{
		"$enc not-base64!!!",
		"$enc AAAA", // too short to carry salt and nonce
		"%%%",
	} {
		if _, err := codec.Decrypt(input); err == nil {
			t.Errorf("Expected error for %q, got nil", input)
		}
	}
}

func TestCodec_EmptyPassphrase(t *testing.T) {
	_, err := NewCodec(nil)
	if err == nil {
		t.Fatal("Expected error for empty passphrase")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodeMissingKey {
		t.Errorf("Expected missing key code, got %s", reconcile.CodeOf(err))
	}
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		input     string
		encrypted bool
		token     string
	}{
		{"plain value", false, ""},
		{"$enc dG9rZW4=", true, "dG9rZW4="},
		{"$enc \t dG9rZW4=", true, "dG9rZW4="},
		// No separator after the marker: plain text, not a reference.
		{"$enc", false, ""},
		{"$encrypted-looking", false, ""},
		{"$enc ", false, ""},
		{"", false, ""},
	}

	for _, tc := range cases {
		v := ParseValue(tc.input)
		if v.Encrypted() != tc.encrypted {
			t.Errorf("ParseValue(%q): expected encrypted=%v", tc.input, tc.encrypted)
		}
		if v.Token() != tc.token {
			t.Errorf("ParseValue(%q): expected token %q, got %q", tc.input, tc.token, v.Token())
		}
		if v.Raw() != tc.input {
			t.Errorf("ParseValue(%q): raw value not preserved", tc.input)
		}
	}
}

func TestCodec_ResolvePlainValue(t *testing.T) {
	codec := testCodec(t)

	got, err := codec.Resolve(ParseValue("plain"), reconcile.KindString)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "plain" {
		t.Errorf("Expected pass-through, got %q", got)
	}

	// Plain values are also valid for secrets; plaintext-by-default.
	got, err = codec.Resolve(ParseValue("plain"), reconcile.KindSecretString)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "plain" {
		t.Errorf("Expected pass-through for secret kind, got %q", got)
	}
}

func TestCodec_ResolveEncryptedSecret(t *testing.T) {
	codec := testCodec(t)
	wire, err := codec.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	got, err := codec.Resolve(ParseValue(wire), reconcile.KindSecretString)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("Expected decrypted value, got %q", got)
	}
}

func TestCodec_ResolveEncryptedPlainVariableRejected(t *testing.T) {
	codec := testCodec(t)
	wire, err := codec.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = codec.Resolve(ParseValue(wire), reconcile.KindString)
	if err == nil {
		t.Fatal("Expected error for encrypted value on a string variable")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodeEncryptedPlainValue {
		t.Errorf("Unexpected code: %s", reconcile.CodeOf(err))
	}
}

func TestCodec_ResolveWithoutKey(t *testing.T) {
	var codec *Codec

	// Plain values need no key.
	got, err := codec.Resolve(ParseValue("plain"), reconcile.KindSecretString)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got != "plain" {
		t.Errorf("Expected pass-through, got %q", got)
	}

	// Encrypted values do.
	_, err = codec.Resolve(ParseValue("$enc dG9rZW4="), reconcile.KindSecretString)
	if err == nil {
		t.Fatal("Expected error when no key is configured")
	}
	if reconcile.CodeOf(err) != reconcile.ErrCodeMissingKey {
		t.Errorf("Expected missing key code, got %s", reconcile.CodeOf(err))
	}
	if !reconcile.IsFatal(err) {
		t.Error("Expected a missing key to be fatal for the run")
	}
}

func TestLoadKey_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(KeyEnvVar, "from-env")
	if got := string(LoadKey(keyFile)); got != "from-env" {
		t.Errorf("Expected env key to win, got %q", got)
	}
}

func TestLoadKey_FileFallback(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("file-key\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(KeyEnvVar, "")
	if got := string(LoadKey(keyFile)); got != "file-key" {
		t.Errorf("Expected trailing newline trimmed, got %q", got)
	}
}

func TestLoadKey_Unconfigured(t *testing.T) {
	t.Setenv(KeyEnvVar, "")
	if key := LoadKey(filepath.Join(t.TempDir(), "missing")); key != nil {
		t.Errorf("Expected nil key, got %q", key)
	}
}
