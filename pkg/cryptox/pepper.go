package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	pepperMu sync.RWMutex
	pepper   string
)

// LoadPepper reads the pepper from file, generating and persisting a new one
// when the file does not exist yet. It must be called before any hashing.
func LoadPepper(file string) error {
	b, err := LoadOrGenerateSecret(file, func() ([]byte, error) {
		raw := make([]byte, keyLength)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}
		return []byte(base64.RawURLEncoding.EncodeToString(raw)), nil
	})
	if err != nil {
		return err
	}
	SetPepper(string(b))
	return nil
}

// SetPepper installs a pepper directly. Tests use it to avoid touching disk.
func SetPepper(p string) {
	pepperMu.Lock()
	pepper = p
	pepperMu.Unlock()
}

func currentPepper() string {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	return pepper
}
