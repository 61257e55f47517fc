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

const (
	msgEmailTaken    = "This email address is already in use."
	msgUsernameTaken = "A user with that username already exists."
)

type AccountService struct {
	Store store.Store
}

// Register creates a user and its profile in one transaction. Rejected input
// is returned as FormErrors.
func (s *AccountService) Register(ctx context.Context, f RegisterForm) (domain.User, error) {
	log := slogx.FromContext(ctx)

	errs := check(f)
	if err := s.checkUnique(ctx, errs, f.Username, f.Email, ""); err != nil {
		return domain.User{}, err
	}
	if err := errs.orNil(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(f.Password1)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := domain.User{
		ID:           idx.New(),
		Username:     f.Username,
		Email:        f.Email,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.createWithProfile(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent registration; re-check to say which field.
			errs := FormErrors{}
			if err := s.checkUnique(ctx, errs, f.Username, f.Email, ""); err != nil {
				return domain.User{}, err
			}
			if len(errs) == 0 {
				errs.Add(NonFieldError, msgUsernameTaken)
			}
			return domain.User{}, errs
		}
		return domain.User{}, err
	}

	log.Info("user registered", slog.String("user_id", u.ID), slog.String("username", u.Username))
	return u, nil
}

func (s *AccountService) createWithProfile(ctx context.Context, u domain.User) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.Profiles().CreateProfile(ctx, domain.NewProfile(u.ID))
	})
}

// checkUnique adds an error for each of username and email already held by a
// user other than excludeID. Register and account edit share this predicate.
func (s *AccountService) checkUnique(ctx context.Context, errs FormErrors, username, email, excludeID string) error {
	if username != "" && !errs.Has("username") {
		taken, err := s.Store.Users().UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("username", msgUsernameTaken)
		}
	}
	if email != "" && !errs.Has("email") {
		taken, err := s.Store.Users().EmailTaken(ctx, email, excludeID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("email", msgEmailTaken)
		}
	}
	return nil
}

// Authenticate checks a username-or-email and password. Inactive accounts are
// reported only after the password matched so the message leaks nothing.
func (s *AccountService) Authenticate(ctx context.Context, login, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same time as a real check.
			_, _ = cryptox.HashPassword(password)
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unreadable", slog.String("user_id", u.ID), slogx.Err(err))
		}
		return domain.User{}, ErrInvalidCredentials
	}

	if !u.Active {
		log.Info("login refused for inactive account", slog.String("user_id", u.ID))
		return domain.User{}, ErrAccountInactive
	}
	return u, nil
}

// ChangePassword verifies the current password, stores the new one and revokes
// every other session of the user. keepSessionID stays valid.
func (s *AccountService) ChangePassword(ctx context.Context, u domain.User, keepSessionID string, f PasswordChangeForm) error {
	errs := check(f)
	if !errs.Has("old_password") {
		if err := cryptox.VerifyPassword(f.Current, u.PasswordHash); err != nil {
			errs.Add("old_password", "Your old password was entered incorrectly. Please enter it again.")
		}
	}
	if err := errs.orNil(); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(f.Password1)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, u.ID, hash); err != nil {
			return err
		}
		return tx.Sessions().RevokeUserSessions(ctx, u.ID, keepSessionID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("user_id", u.ID))
	return nil
}

// Deactivate confirms the password, marks the account inactive and revokes
// all of its sessions.
func (s *AccountService) Deactivate(ctx context.Context, u domain.User, password string) error {
	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		errs := FormErrors{}
		errs.Add("password", "Your password was entered incorrectly.")
		return errs
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, u.ID, false); err != nil {
			return err
		}
		return tx.Sessions().RevokeUserSessions(ctx, u.ID, "")
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("account deactivated", slog.String("user_id", u.ID))
	return nil
}

// UpdateAccount edits names, username and email. Uniqueness ignores u itself,
// so resubmitting the current email is accepted.
func (s *AccountService) UpdateAccount(ctx context.Context, u domain.User, f AccountForm) (domain.User, error) {
	errs := check(f)
	if err := s.checkUnique(ctx, errs, f.Username, f.Email, u.ID); err != nil {
		return u, err
	}
	if err := errs.orNil(); err != nil {
		return u, err
	}

	u.FirstName = f.FirstName
	u.LastName = f.LastName
	u.Username = f.Username
	u.Email = f.Email
	if err := s.Store.Users().UpdateAccount(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			errs.Add(NonFieldError, "That username or email was just taken. Please choose another.")
			return u, errs
		}
		return u, err
	}
	return u, nil
}

// GetByUsername looks a user up for profile pages.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.Store.Users().GetUserByUsername(ctx, username)
}

// ListUsers is used by the admin filters.
func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}
