package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadOrGenerateSecret returns the contents of file. When the file is missing
// gen is called and its output written with 0600 permissions.
func LoadOrGenerateSecret(file string, gen func() ([]byte, error)) ([]byte, error) {
	file = filepath.Clean(file)

	b, err := os.ReadFile(file)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, err
	}
	b, err = gen()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, b, 0600); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomBytes returns a generator for LoadOrGenerateSecret producing n raw bytes.
func RandomBytes(n int) func() ([]byte, error) {
	return func() ([]byte, error) {
		b := make([]byte, n)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		return b, nil
	}
}

// GenerateEd25519Key generates a new Ed25519 private key in PKCS8 PEM form.
func GenerateEd25519Key() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate Ed25519 key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParseEd25519Key decodes a PKCS8 PEM private key.
func ParseEd25519Key(pemBytes []byte) (ed25519.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, errors.New("cryptox: no PRIVATE KEY block found")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptox: parse PKCS8: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("cryptox: expected Ed25519 key, got %T", key)
	}
	return priv, nil
}

// LoadOrGenerateEd25519Key loads the session signing key from file, creating it on first run.
func LoadOrGenerateEd25519Key(file string) (ed25519.PrivateKey, error) {
	b, err := LoadOrGenerateSecret(file, GenerateEd25519Key)
	if err != nil {
		return nil, err
	}
	return ParseEd25519Key(b)
}
