package service

import (
	"context"
	"net/url"
	"os"
	"testing"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store/drivers/sqlite"
	"github.com/billedfitness/bfl/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepper("test-pepper")
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func registerForm(username, email string) RegisterForm {
	return RegisterFormFrom(url.Values{
		"first_name": {"Test"},
		"last_name":  {"User"},
		"username":   {username},
		"email":      {email},
		"password1":  {"correct-horse"},
		"password2":  {"correct-horse"},
	})
}

func mustRegister(t *testing.T, accounts *AccountService, username string) domain.User {
	t.Helper()
	u, err := accounts.Register(context.Background(), registerForm(username, username+"@example.com"))
	require.NoError(t, err)
	return u
}

func requireFormError(t *testing.T, err error, field string) FormErrors {
	t.Helper()
	var errs FormErrors
	require.ErrorAs(t, err, &errs)
	require.True(t, errs.Has(field), "expected error on %q, got %v", field, errs)
	return errs
}
