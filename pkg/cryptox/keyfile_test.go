package cryptox

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateEd25519Key(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "session.pem")

	k1, err := LoadOrGenerateEd25519Key(path)
	require.NoError(t, err)
	require.Len(t, k1, ed25519.PrivateKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	k2, err := LoadOrGenerateEd25519Key(path)
	require.NoError(t, err)
	require.True(t, k1.Equal(k2), "second load should return the persisted key")
}

func TestParseEd25519Key_Rejects(t *testing.T) {
	_, err := ParseEd25519Key([]byte("not pem"))
	require.Error(t, err)
}

func TestLoadOrGenerateSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csrf.key")

	b1, err := LoadOrGenerateSecret(path, RandomBytes(32))
	require.NoError(t, err)
	require.Len(t, b1, 32)

	b2, err := LoadOrGenerateSecret(path, RandomBytes(32))
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestLoadPepper(t *testing.T) {
	t.Cleanup(func() { SetPepper("test-pepper") })
	path := filepath.Join(t.TempDir(), "pepper")

	require.NoError(t, LoadPepper(path))
	first := currentPepper()
	require.NotEmpty(t, first)

	hash, err := HashPassword("pw")
	require.NoError(t, err)

	SetPepper("")
	require.NoError(t, LoadPepper(path))
	require.Equal(t, first, currentPepper())
	require.NoError(t, VerifyPassword("pw", hash))
}
