package httpx

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Pages that show private data use it.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// Redirect issues 303 See Other after a POST and 302 Found otherwise.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	code := http.StatusFound
	if r.Method == http.MethodPost {
		code = http.StatusSeeOther
	}
	http.Redirect(w, r, target, code)
}

// GetRemoteIP returns the client address. See RealIP for proxied deployments.
func GetRemoteIP(r *http.Request) string {
	return IPKeyExtractor(r)
}

// IsLocalPath reports whether p is safe to redirect to: an absolute path on
// this host, never a scheme-relative or absolute URL.
func IsLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}

func splitHost(addr string) string {
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return ip
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
