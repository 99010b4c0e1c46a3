package secrets

import (
	"os"
	"strings"
)

// KeyEnvVar is the environment variable holding the encryption passphrase.
const KeyEnvVar = "NIMBUS_CRYPTKEY"

// DefaultKeyFile is the fallback key file, read from the working directory.
const DefaultKeyFile = ".cryptkey"

// LoadKey reads the process-wide encryption passphrase, preferring the
// environment variable over the key file. A missing key is not an error
// here: it only becomes fatal when a marked value is actually encountered,
// which Resolve reports. The returned slice is nil when no key is
// configured.
func LoadKey(keyFile string) []byte {
	if v, ok := os.LookupEnv(KeyEnvVar); ok && v != "" {
		return []byte(v)
	}
	if keyFile == "" {
		keyFile = DefaultKeyFile
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil
	}
	key := strings.TrimRight(string(data), "\r\n")
	if key == "" {
		return nil
	}
	return []byte(key)
}
