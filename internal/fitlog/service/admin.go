package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/cryptox"
	"github.com/billedfitness/bfl/pkg/idx"
	"github.com/billedfitness/bfl/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("users already exist")

// AdminService holds the out-of-band account actions used by bflctl and at startup.
type AdminService struct {
	Store store.Store
}

// Bootstrap creates the configured admin when the user table is empty.
func (s *AdminService) Bootstrap(ctx context.Context, b domain.BootstrapAdmin) (domain.User, error) {
	log := slogx.FromContext(ctx)

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if !empty {
		return domain.User{}, ErrBootstrapAlready
	}

	hash, err := cryptox.HashPassword(b.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash admin password: %w", err)
	}

	u := domain.User{
		ID:           idx.New(),
		Username:     b.Username,
		Email:        b.Email,
		FirstName:    b.FirstName,
		LastName:     b.LastName,
		PasswordHash: hash,
		Active:       true,
		Admin:        true,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.Profiles().CreateProfile(ctx, domain.NewProfile(u.ID))
	})
	if err != nil {
		log.Error("failed to create bootstrap admin", slogx.Err(err))
		return domain.User{}, err
	}

	log.Info("bootstrap admin created", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// SetActive reactivates or deactivates an account. Deactivation revokes sessions.
func (s *AdminService) SetActive(ctx context.Context, username string, active bool) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if err := tx.Users().SetActive(ctx, u.ID, active); err != nil {
			return err
		}
		if !active {
			return tx.Sessions().RevokeUserSessions(ctx, u.ID, "")
		}
		return nil
	})
}

func (s *AdminService) SetAdmin(ctx context.Context, username string, admin bool) error {
	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.Store.Users().SetAdmin(ctx, u.ID, admin)
}

// ResetPassword sets a generated password, revokes sessions and returns the
// new password for the operator to pass on.
func (s *AdminService) ResetPassword(ctx context.Context, username string) (string, error) {
	password, err := cryptox.GeneratePassword()
	if err != nil {
		return "", err
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return "", err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByUsername(ctx, username)
		if err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return err
		}
		return tx.Sessions().RevokeUserSessions(ctx, u.ID, "")
	})
	if err != nil {
		return "", err
	}
	return password, nil
}
