package sqlite

import (
	"context"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
)

type sessionsRepo struct {
	q dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, user_agent, ip, created_at, expires_at, revoked)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.UserAgent, s.IP, formatTime(s.CreatedAt), formatTime(s.ExpiresAt), s.Revoked,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var (
		s                domain.Session
		created, expires string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, user_agent, ip, created_at, expires_at, revoked
		FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.UserAgent, &s.IP, &created, &expires, &s.Revoked)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return domain.Session{}, err
	}
	if s.ExpiresAt, err = parseTime(expires); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	return expectOne(r.q.ExecContext(ctx, `UPDATE sessions SET revoked = 1 WHERE id = ?`, id))
}

func (r *sessionsRepo) RevokeUserSessions(ctx context.Context, userID, keepID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1 WHERE user_id = ? AND id != ?`, userID, keepID)
	return err
}

func (r *sessionsRepo) DeleteStaleSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE revoked = 1 OR expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
