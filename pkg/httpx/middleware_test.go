package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRecover(t *testing.T) {
	h := httpx.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLimitBody(t *testing.T) {
	var readErr error
	h := httpx.LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// Without a declared length the reader itself stops at the cap.
	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("0123456789")))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	var tooBig *http.MaxBytesError
	require.ErrorAs(t, readErr, &tooBig)

	readErr = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	require.NoError(t, readErr)
}

func TestRedirectStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.Redirect(rec, httptest.NewRequest(http.MethodGet, "/", nil), "/home")
	require.Equal(t, http.StatusFound, rec.Code)

	rec = httptest.NewRecorder()
	httpx.Redirect(rec, httptest.NewRequest(http.MethodPost, "/", nil), "/home")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/home", rec.Header().Get("Location"))
}

func TestIsLocalPath(t *testing.T) {
	tests := map[string]bool{
		"/home":                     true,
		"/workouts/cardio?page=2":   true,
		"":                          false,
		"home":                      false,
		"//evil.example":            false,
		"/\\evil.example":           false,
		"https://evil.example/home": false,
	}
	for in, want := range tests {
		require.Equal(t, want, httpx.IsLocalPath(in), in)
	}
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	m := httpx.NewMetrics("test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /workouts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := m.Middleware(mux)

	for _, id := range []string{"a", "b"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/workouts/"+id, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.True(t, strings.Contains(string(body),
		`test_http_requests_total{method="GET",route="GET /workouts/{id}",status="204"} 2`), string(body))
}
