package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Port:           8080,
		Env:            "test",
		LogLevel:       "error",
		LogFormat:      "text",
		Issuer:         "bfl-test",
		DatabaseFile:   filepath.Join(dir, "bfl.db"),
		PepperFile:     filepath.Join(dir, "keys", "pepper"),
		SessionKeyFile: filepath.Join(dir, "keys", "session.pem"),
		SessionTTL:     time.Hour,
		CSRFKeyFile:    filepath.Join(dir, "keys", "csrf.key"),
		MediaRoot:      filepath.Join(dir, "media"),
		AdminUsername:  "root",
		AdminEmail:     "root@example.com",
		AdminPassword:  "bootstrap-pass",
	}
}

func TestInitKeysIsStable(t *testing.T) {
	cfg := testConfig(t)
	first, err := InitKeys(cfg, discard())
	require.NoError(t, err)
	require.Len(t, first.CSRF, csrfKeySize)
	require.True(t, first.KeySet.IsReady())

	second, err := InitKeys(cfg, discard())
	require.NoError(t, err)
	require.Equal(t, first.Signer.KID(), second.Signer.KID())
	require.Equal(t, first.CSRF, second.CSRF)

	info, err := os.Stat(cfg.SessionKeyFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestInitKeysRejectsShortCSRFKey(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.CSRFKeyFile), 0750))
	require.NoError(t, os.WriteFile(cfg.CSRFKeyFile, []byte("short"), 0600))

	_, err := InitKeys(cfg, discard())
	require.Error(t, err)
}

func TestNewApplication(t *testing.T) {
	cfg := testConfig(t)

	app, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	u, err := app.db.Users().GetUserByUsername(context.Background(), "root")
	require.NoError(t, err)
	require.True(t, u.Admin)
	require.True(t, u.Active)

	_, err = os.Stat(filepath.Join(cfg.MediaRoot, domain.DefaultImage))
	require.NoError(t, err)

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/media/" + domain.DefaultImage)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBootstrapRunsOnce(t *testing.T) {
	cfg := testConfig(t)

	app, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, app.db.Close())

	cfg.AdminUsername = "other"
	cfg.AdminEmail = "other@example.com"
	app, err = New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	_, err = app.db.Users().GetUserByUsername(context.Background(), "other")
	require.Error(t, err)
}

func discard() *slog.Logger { return slogx.Discard() }
