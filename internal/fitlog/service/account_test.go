package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	accounts := &AccountService{Store: st}

	u, err := accounts.Register(ctx, registerForm("alice", "alice@example.com"))
	require.NoError(t, err)
	require.True(t, u.Active)
	require.False(t, u.Admin)
	require.NotEqual(t, "correct-horse", u.PasswordHash)

	p, err := st.Profiles().GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WeightPounds, p.WeightUnit)
	require.Equal(t, domain.DistanceMiles, p.DistanceUnit)
	require.Equal(t, domain.DefaultImage, p.Image)

	t.Run("username taken", func(t *testing.T) {
		_, err := accounts.Register(ctx, registerForm("alice", "other@example.com"))
		errs := requireFormError(t, err, "username")
		require.Equal(t, []string{msgUsernameTaken}, errs["username"])
	})

	t.Run("email taken in any case", func(t *testing.T) {
		_, err := accounts.Register(ctx, registerForm("bob", "ALICE@example.com"))
		errs := requireFormError(t, err, "email")
		require.Equal(t, []string{msgEmailTaken}, errs["email"])
	})

	t.Run("passwords must match", func(t *testing.T) {
		f := registerForm("carol", "carol@example.com")
		f.Password2 = "something-else"
		_, err := accounts.Register(ctx, f)
		requireFormError(t, err, "password2")
	})

	t.Run("invalid username characters", func(t *testing.T) {
		_, err := accounts.Register(ctx, registerForm("no spaces", "dave@example.com"))
		requireFormError(t, err, "username")
	})

	t.Run("names required", func(t *testing.T) {
		f := registerForm("erin", "erin@example.com")
		f.FirstName = ""
		_, err := accounts.Register(ctx, f)
		requireFormError(t, err, "first_name")
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	accounts := &AccountService{Store: st}
	alice := mustRegister(t, accounts, "alice")

	for _, login := range []string{"alice", "ALICE", "alice@example.com"} {
		u, err := accounts.Authenticate(ctx, login, "correct-horse")
		require.NoError(t, err, login)
		require.Equal(t, alice.ID, u.ID)
	}

	_, err := accounts.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = accounts.Authenticate(ctx, "nobody", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, st.Users().SetActive(ctx, alice.ID, false))

	_, err = accounts.Authenticate(ctx, "alice", "correct-horse")
	require.ErrorIs(t, err, ErrAccountInactive)

	// Inactive status is only disclosed to someone who knows the password.
	_, err = accounts.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	accounts := &AccountService{Store: st}
	alice := mustRegister(t, accounts, "alice")
	mustRegister(t, accounts, "bob")

	t.Run("keeping own email is allowed", func(t *testing.T) {
		u, err := accounts.UpdateAccount(ctx, alice, AccountFormFrom(url.Values{
			"first_name": {"Alice"},
			"last_name":  {"Liddell"},
			"username":   {"alice"},
			"email":      {"ALICE@example.com"},
		}))
		require.NoError(t, err)
		require.Equal(t, "Alice Liddell (@alice)", u.DisplayName())

		got, err := st.Users().GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, "Liddell", got.LastName)
	})

	t.Run("someone else's email is rejected", func(t *testing.T) {
		_, err := accounts.UpdateAccount(ctx, alice, AccountFormFrom(url.Values{
			"username": {"alice"},
			"email":    {"bob@example.com"},
		}))
		requireFormError(t, err, "email")
	})

	t.Run("someone else's username is rejected", func(t *testing.T) {
		_, err := accounts.UpdateAccount(ctx, alice, AccountFormFrom(url.Values{
			"username": {"BOB"},
			"email":    {"alice@example.com"},
		}))
		requireFormError(t, err, "username")
	})
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	accounts := &AccountService{Store: st}
	alice := mustRegister(t, accounts, "alice")

	now := time.Now().UTC()
	for _, id := range []string{"keep", "other"} {
		require.NoError(t, st.Sessions().CreateSession(ctx, domain.Session{
			ID: id, UserID: alice.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
	}

	err := accounts.ChangePassword(ctx, alice, "keep", PasswordChangeFormFrom(url.Values{
		"old_password":  {"wrong"},
		"new_password1": {"new-password"},
		"new_password2": {"new-password"},
	}))
	requireFormError(t, err, "old_password")

	err = accounts.ChangePassword(ctx, alice, "keep", PasswordChangeFormFrom(url.Values{
		"old_password":  {"correct-horse"},
		"new_password1": {"new-password"},
		"new_password2": {"new-password"},
	}))
	require.NoError(t, err)

	keep, err := st.Sessions().GetSession(ctx, "keep")
	require.NoError(t, err)
	require.False(t, keep.Revoked)
	other, err := st.Sessions().GetSession(ctx, "other")
	require.NoError(t, err)
	require.True(t, other.Revoked)

	_, err = accounts.Authenticate(ctx, "alice", "new-password")
	require.NoError(t, err)
	_, err = accounts.Authenticate(ctx, "alice", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	accounts := &AccountService{Store: st}
	alice := mustRegister(t, accounts, "alice")

	requireFormError(t, accounts.Deactivate(ctx, alice, "wrong"), "password")

	require.NoError(t, accounts.Deactivate(ctx, alice, "correct-horse"))
	got, err := st.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
}

func TestAdminService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	admin := &AdminService{Store: st}
	accounts := &AccountService{Store: st}

	boot := domain.BootstrapAdmin{Username: "root", Email: "root@example.com", Password: "bootstrap-pw"}
	u, err := admin.Bootstrap(ctx, boot)
	require.NoError(t, err)
	require.True(t, u.Admin)

	_, err = admin.Bootstrap(ctx, boot)
	require.ErrorIs(t, err, ErrBootstrapAlready)

	alice := mustRegister(t, accounts, "alice")
	require.NoError(t, admin.SetAdmin(ctx, "alice", true))
	got, err := st.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, got.Admin)

	require.NoError(t, admin.SetActive(ctx, "alice", false))
	_, err = accounts.Authenticate(ctx, "alice", "correct-horse")
	require.ErrorIs(t, err, ErrAccountInactive)
	require.NoError(t, admin.SetActive(ctx, "alice", true))

	pw, err := admin.ResetPassword(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, pw, 12)
	_, err = accounts.Authenticate(ctx, "alice", pw)
	require.NoError(t, err)

	require.ErrorIs(t, admin.SetActive(ctx, "nobody", true), store.ErrNotFound)
}
