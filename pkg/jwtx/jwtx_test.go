package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) (*Signer, *KeySet) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	s, err := NewSigner(priv)
	require.NoError(t, err)
	ks := NewKeySet()
	require.Equal(t, s.KID(), ks.Add(s.Public()))
	return s, ks
}

func TestSignAndVerify(t *testing.T) {
	s, ks := newTestSigner(t)
	v := NewVerifier(ks, "bfl", 0)

	tok, err := s.Sign(NewSessionClaims("user-1", "sess-1", "bfl", time.Hour, time.Now()))
	require.NoError(t, err)

	c, err := v.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, "sess-1", c.SID)
}

func TestVerifyRejections(t *testing.T) {
	s, ks := newTestSigner(t)
	other, _ := newTestSigner(t)
	now := time.Now()

	expired, err := s.Sign(NewSessionClaims("u", "s", "bfl", time.Minute, now.Add(-time.Hour)))
	require.NoError(t, err)
	wrongIssuer, err := s.Sign(NewSessionClaims("u", "s", "someone-else", time.Hour, now))
	require.NoError(t, err)
	unknownKey, err := other.Sign(NewSessionClaims("u", "s", "bfl", time.Hour, now))
	require.NoError(t, err)
	noSID, err := s.Sign(NewSessionClaims("u", "", "bfl", time.Hour, now))
	require.NoError(t, err)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, NewSessionClaims("u", "s", "bfl", time.Hour, now))
	hs.Header["kid"] = s.KID()
	hmacTok, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)

	v := NewVerifier(ks, "bfl", 0)
	tests := []struct {
		name  string
		token string
		err   error
	}{
		{"expired", expired, ErrExpired},
		{"issuer", wrongIssuer, ErrIssuer},
		{"unknown kid", unknownKey, ErrMalformed},
		{"missing sid", noSID, ErrMissingSID},
		{"alg confusion", hmacTok, ErrMalformed},
		{"garbage", "not.a.jwt", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestKeyIDStable(t *testing.T) {
	s, _ := newTestSigner(t)
	require.Equal(t, s.KID(), KeyID(s.Public()))
}
