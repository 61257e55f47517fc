package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/pkg/httpx"
	"github.com/billedfitness/bfl/pkg/slogx"
)

const sessionCookieName = "bfl_session"

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeySession
)

func currentUser(r *http.Request) (domain.User, bool) {
	u, ok := r.Context().Value(ctxKeyUser).(domain.User)
	return u, ok
}

func currentSession(r *http.Request) domain.Session {
	s, _ := r.Context().Value(ctxKeySession).(domain.Session)
	return s
}

// SessionCookies writes and clears the login cookie.
type SessionCookies struct {
	Secure bool
	TTL    time.Duration
}

func (c SessionCookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.TTL / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionMiddleware resolves the session cookie. Requests with a missing or
// invalid session continue anonymously and a stale cookie is cleared.
func SessionMiddleware(sessions *service.SessionService, cookies SessionCookies) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(sessionCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, sess, err := sessions.Resolve(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, service.ErrSessionInvalid) {
					slogx.FromContext(r.Context()).Error("session lookup failed", slogx.Err(err))
				}
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, u)
			ctx = context.WithValue(ctx, ctxKeySession, sess)
			ctx = httpx.WithUserID(ctx, u.ID)
			ctx = slogx.With(ctx, "user_id", u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loginURL(r *http.Request) string {
	return "/login?next=" + url.QueryEscape(r.URL.RequestURI())
}

// RequireUser sends anonymous visitors to the login page, remembering where
// they were going.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(r); !ok {
			httpx.Redirect(w, r, loginURL(r))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnonymous keeps signed-in users off the landing, login and register pages.
func RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(r); ok {
			httpx.Redirect(w, r, "/home")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers non-admins with notFound so admin pages stay unlisted.
func RequireAdmin(notFound http.Handler) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := currentUser(r)
			if !ok {
				httpx.Redirect(w, r, loginURL(r))
				return
			}
			if !u.Admin {
				notFound.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
