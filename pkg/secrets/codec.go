// Package secrets implements the reversible secret-value codec that lets
// encrypted values travel safely through plaintext YAML. Values are sealed
// with AES-256-GCM under a key derived from an operator-supplied passphrase;
// salt and nonce are generated per call and embedded in the ciphertext, so
// encrypting the same plaintext twice yields different wire values.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// Marker is the literal prefix identifying a value as ciphertext. The wire
// representation of an encrypted value is the marker, one space, and the
// base64 ciphertext token.
const Marker = "$enc"

const (
	saltSize  = 16
	nonceSize = 12

	// scrypt parameters, interactive-strength.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
	keyLen  = 32
)

// Codec encrypts and decrypts marked secret values. Key material is injected
// at construction; the codec holds no other state and is safe for reuse
// within one run.
type Codec struct {
	passphrase []byte
}

// NewCodec creates a codec from passphrase bytes. Returns an error when the
// passphrase is empty; callers that have no key configured should carry a
// nil *Codec instead and let Resolve fail only when a marked value is
// actually encountered.
func NewCodec(passphrase []byte) (*Codec, error) {
	if len(passphrase) == 0 {
		return nil, reconcile.NewCodecError("encryption key is empty", nil).
			WithCode(reconcile.ErrCodeMissingKey)
	}
	return &Codec{passphrase: passphrase}, nil
}

// Encrypt seals the plaintext and returns the full marked wire value,
// "$enc <base64>".
func (c *Codec) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", reconcile.NewCodecError("salt generation failed", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", reconcile.NewCodecError("nonce generation failed", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return Marker + " " + base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a marked value, or a bare ciphertext token, and returns the
// plaintext. Malformed input and wrong-key input both fail with a
// decryption error.
func (c *Codec) Decrypt(value string) (string, error) {
	token := value
	if v := ParseValue(value); v.Encrypted() {
		token = v.Token()
	}

	blob, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", reconcile.NewCodecError("malformed ciphertext", err).
			WithCode(reconcile.ErrCodeDecryption)
	}
	if len(blob) < saltSize+nonceSize+1 {
		return "", reconcile.NewCodecError("ciphertext too short", nil).
			WithCode(reconcile.ErrCodeDecryption)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	sealed := blob[saltSize+nonceSize:]

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", reconcile.NewCodecError("could not decrypt value, wrong key?", err).
			WithCode(reconcile.ErrCodeDecryption)
	}
	return string(plaintext), nil
}

// Resolve resolves one parsed value against its declared variable kind.
// Encrypted references are only valid for secretString variables; a marked
// value on a plain string variable is a validation-time failure, not
// something to silently decrypt. Plain values pass through verbatim for any
// kind: plaintext-by-default is intentional, if footgun-shaped.
func (c *Codec) Resolve(v Value, kind reconcile.VariableKind) (string, error) {
	if !v.Encrypted() {
		return v.Raw(), nil
	}
	if kind != reconcile.KindSecretString {
		return "", reconcile.NewCodecError(
			fmt.Sprintf("encrypted value not allowed for variable of kind %q", kind), nil).
			WithCode(reconcile.ErrCodeEncryptedPlainValue)
	}
	if c == nil {
		return "", reconcile.NewCodecError(
			"encrypted value encountered but no encryption key is configured", nil).
			WithCode(reconcile.ErrCodeMissingKey)
	}
	return c.Decrypt(v.Token())
}

// aead derives the AES key for a salt and builds the GCM cipher.
func (c *Codec) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(c.passphrase, salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, reconcile.NewCodecError("key derivation failed", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, reconcile.NewCodecError("cipher initialization failed", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, reconcile.NewCodecError("cipher initialization failed", err)
	}
	return aead, nil
}

// Value is a desired variable value parsed into its plain or encrypted
// variant. Parsing happens once at input-loading time so no marker-prefix
// sniffing leaks into planning or coordination.
type Value struct {
	raw       string
	token     string
	encrypted bool
}

// ParseValue classifies a raw input value. A value starting with the marker
// token followed by whitespace is an encrypted reference; anything else is
// plain text.
func ParseValue(raw string) Value {
	if !strings.HasPrefix(raw, Marker) {
		return Value{raw: raw}
	}
	rest := raw[len(Marker):]
	trimmed := strings.TrimLeft(rest, " \t")
	if trimmed == rest || trimmed == "" {
		// Bare "$enc" or "$enc<garbage>" without a separator is not a
		// well-formed reference; treat it as plain text.
		return Value{raw: raw}
	}
	return Value{raw: raw, token: trimmed, encrypted: true}
}

// Encrypted reports whether the value is an encrypted reference.
func (v Value) Encrypted() bool { return v.encrypted }

// Raw returns the original input value.
func (v Value) Raw() string { return v.raw }

// Token returns the ciphertext token of an encrypted reference.
func (v Value) Token() string { return v.token }
