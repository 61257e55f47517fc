package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/idx"
	"github.com/billedfitness/bfl/pkg/jwtx"
	"github.com/billedfitness/bfl/pkg/slogx"
)

// SessionService issues and resolves login sessions. A session is a row in
// the store plus a signed token naming it; both must check out.
type SessionService struct {
	Store    store.Store
	Signer   *jwtx.Signer
	Verifier *jwtx.Verifier
	Issuer   string
	TTL      time.Duration

	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Start records a session for u and returns the token for the cookie.
func (s *SessionService) Start(ctx context.Context, u domain.User, userAgent, ip string) (string, domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        idx.NewAt(now),
		UserID:    u.ID,
		UserAgent: truncate(userAgent, 255),
		IP:        ip,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return "", domain.Session{}, fmt.Errorf("create session: %w", err)
	}

	token, err := s.Signer.Sign(jwtx.NewSessionClaims(u.ID, sess.ID, s.Issuer, s.TTL, now))
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("sign session: %w", err)
	}

	slogx.FromContext(ctx).Info("session started",
		slog.String("user_id", u.ID),
		slog.String("session_id", sess.ID),
	)
	return token, sess, nil
}

// Resolve maps a cookie token to its user. Every failure, including an
// inactive user or a revoked session, is ErrSessionInvalid.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.User, domain.Session, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	sess, err := s.Store.Sessions().GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, ErrSessionInvalid
		}
		return domain.User{}, domain.Session{}, err
	}
	if !sess.Valid(s.now()) || sess.UserID != claims.Subject {
		return domain.User{}, domain.Session{}, ErrSessionInvalid
	}

	u, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.Session{}, ErrSessionInvalid
		}
		return domain.User{}, domain.Session{}, err
	}
	if !u.Active {
		return domain.User{}, domain.Session{}, ErrSessionInvalid
	}
	return u, sess, nil
}

// End revokes one session. Unknown ids are ignored.
func (s *SessionService) End(ctx context.Context, sessionID string) error {
	err := s.Store.Sessions().RevokeSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
