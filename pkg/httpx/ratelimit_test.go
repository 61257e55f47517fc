package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func formRequest(ip, username string) *http.Request {
	body := url.Values{"username": {username}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = ip + ":40000"
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "10.1.2.3:5555", nil, "10.1.2.3"},
		{"remote addr without port", "10.1.2.3", nil, "10.1.2.3"},
		{"forwarded for ignored", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "127.0.0.1"},
		{"real ip ignored", "127.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.7"}, "127.0.0.1"},
		{"ipv6", "[2001:db8::1]:443", nil, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
			require.Equal(t, tt.want, httpx.GetRemoteIP(req))
		})
	}
}

func TestCompositeKeyExtractorSkipsEmptyParts(t *testing.T) {
	key := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("username"))

	require.Equal(t, "10.0.0.1:alice", key(formRequest("10.0.0.1", " Alice ")))
	require.Equal(t, "10.0.0.1", key(formRequest("10.0.0.1", "")))
}

func TestLoginThrottleIsPerUsername(t *testing.T) {
	limited := httpx.RateLimitByIPAndFormField(
		httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2},
		"username", http.MethodPost,
	)(okHandler)

	for range 2 {
		require.Equal(t, http.StatusOK, serve(limited, formRequest("10.0.0.1", "alice")).Code)
	}
	rec := serve(limited, formRequest("10.0.0.1", "ALICE"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another username from the same address, or the same username from
	// another address, has its own bucket.
	require.Equal(t, http.StatusOK, serve(limited, formRequest("10.0.0.1", "bob")).Code)
	require.Equal(t, http.StatusOK, serve(limited, formRequest("10.0.0.2", "alice")).Code)
}

func TestRateLimitOnlyCountsListedMethods(t *testing.T) {
	limited := httpx.RateLimitMiddleware(
		httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
		httpx.IPKeyExtractor, http.MethodPost,
	)(okHandler)

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1"
		require.Equal(t, http.StatusOK, serve(limited, req).Code)
	}

	require.Equal(t, http.StatusOK, serve(limited, formRequest("10.0.0.1", "x")).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(limited, formRequest("10.0.0.1", "x")).Code)
}

func TestRateLimitByUser(t *testing.T) {
	limited := httpx.RateLimitByUser(
		httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
	)(okHandler)

	upload := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/usr/x/edit", nil)
		req.RemoteAddr = "10.0.0.1:1"
		if userID != "" {
			req = req.WithContext(httpx.WithUserID(req.Context(), userID))
		}
		return serve(limited, req).Code
	}

	require.Equal(t, http.StatusOK, upload("u1"))
	require.Equal(t, http.StatusTooManyRequests, upload("u1"))
	require.Equal(t, http.StatusOK, upload("u2"))
	// Anonymous requests fall back to the address alone.
	require.Equal(t, http.StatusOK, upload(""))
	require.Equal(t, http.StatusTooManyRequests, upload(""))
}

func TestRateLimitRefills(t *testing.T) {
	limited := httpx.RateLimitMiddleware(
		httpx.RateLimitConfig{RequestsPerWindow: 1, Window: 50 * time.Millisecond, Burst: 1},
		httpx.IPKeyExtractor,
	)(okHandler)

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.9:1"
		return r
	}

	require.Equal(t, http.StatusOK, serve(limited, req()).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(limited, req()).Code)
	require.Eventually(t, func() bool {
		return serve(limited, req()).Code == http.StatusOK
	}, time.Second, 10*time.Millisecond)
}

func TestRateLimitProfiles(t *testing.T) {
	for name, config := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Greater(t, config.RequestsPerWindow, 0)
			require.Greater(t, config.Window, time.Duration(0))
			require.Greater(t, config.Burst, 0)
		})
	}
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
}

func BenchmarkLoginThrottle(b *testing.B) {
	limited := httpx.RateLimitByIPAndFormField(
		httpx.RateLimitConfig{RequestsPerWindow: 1_000_000, Window: time.Second, Burst: 1_000_000},
		"username", http.MethodPost,
	)(okHandler)

	for b.Loop() {
		serve(limited, formRequest("10.0.0.1", "alice"))
	}
}
