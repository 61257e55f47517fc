package app

import (
	"fmt"
	"log/slog"

	"github.com/billedfitness/bfl/pkg/cryptox"
	"github.com/billedfitness/bfl/pkg/jwtx"
)

const csrfKeySize = 32

// Keys holds the secrets loaded at startup.
type Keys struct {
	Signer *jwtx.Signer
	KeySet *jwtx.KeySet
	CSRF   []byte
}

// InitKeys loads the pepper, session signing key and CSRF key from their
// files, generating any that do not exist yet. Tokens and CSRF cookies issued
// before a restart stay valid as long as the files are kept.
func InitKeys(cfg Config, logger *slog.Logger) (Keys, error) {
	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return Keys{}, fmt.Errorf("load pepper: %w", err)
	}

	priv, err := cryptox.LoadOrGenerateEd25519Key(cfg.SessionKeyFile)
	if err != nil {
		return Keys{}, fmt.Errorf("load session key: %w", err)
	}
	signer, err := jwtx.NewSigner(priv)
	if err != nil {
		return Keys{}, err
	}
	keySet := jwtx.NewKeySet()
	keySet.Add(signer.Public())

	csrfKey, err := cryptox.LoadOrGenerateSecret(cfg.CSRFKeyFile, cryptox.RandomBytes(csrfKeySize))
	if err != nil {
		return Keys{}, fmt.Errorf("load csrf key: %w", err)
	}
	if len(csrfKey) != csrfKeySize {
		return Keys{}, fmt.Errorf("csrf key in %s must be %d bytes, got %d", cfg.CSRFKeyFile, csrfKeySize, len(csrfKey))
	}

	logger.Info("keys loaded", slog.String("kid", signer.KID()))
	return Keys{Signer: signer, KeySet: keySet, CSRF: csrfKey}, nil
}
