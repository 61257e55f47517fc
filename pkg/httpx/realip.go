package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ParseTrustedProxies parses addresses and CIDR ranges such as "10.0.0.0/8"
// or "127.0.0.1". Blank entries are skipped.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// RealIP rewrites r.RemoteAddr to the client address reported by a trusted
// proxy. X-Forwarded-For is walked right to left and the first hop that is
// not itself trusted wins. Headers from untrusted peers are ignored, so a
// client cannot choose its own rate limit key.
func RealIP(trusted []netip.Prefix) Middleware {
	isTrusted := func(s string) bool {
		a, err := netip.ParseAddr(strings.TrimSpace(s))
		if err != nil {
			return false
		}
		a = a.Unmap()
		for _, p := range trusted {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isTrusted(splitHost(r.RemoteAddr)) {
				next.ServeHTTP(w, r)
				return
			}

			client := ""
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				hops := strings.Split(xff, ",")
				for i := len(hops) - 1; i >= 0; i-- {
					hop := strings.TrimSpace(hops[i])
					if _, err := netip.ParseAddr(hop); err != nil {
						break
					}
					client = hop
					if !isTrusted(hop) {
						break
					}
				}
			} else if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
				if _, err := netip.ParseAddr(xri); err == nil {
					client = xri
				}
			}

			if client != "" {
				r2 := r.Clone(r.Context())
				r2.RemoteAddr = net.JoinHostPort(client, "0")
				r = r2
			}
			next.ServeHTTP(w, r)
		})
	}
}
