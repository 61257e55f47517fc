package http

import (
	"net/url"
	"path"
	"strings"

	"github.com/billedfitness/bfl/pkg/httpx"
)

// actionSegments are path endings that must never be navigated back to.
var actionSegments = map[string]bool{
	"new":       true,
	"edit":      true,
	"delete":    true,
	"duplicate": true,
}

// returnTo picks the back link for a detail, edit or delete page: raw when it
// is a local, non-action path, else fallback.
func returnTo(raw, fallback string) string {
	if !httpx.IsLocalPath(raw) {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fallback
	}
	if actionSegments[path.Base(strings.TrimSuffix(u.Path, "/"))] {
		return fallback
	}
	return raw
}

// safeNext validates the login redirect target.
func safeNext(raw string) string {
	if !httpx.IsLocalPath(raw) || strings.HasPrefix(raw, "/logout") {
		return "/home"
	}
	return raw
}
