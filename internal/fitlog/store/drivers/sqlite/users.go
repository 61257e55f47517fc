package sqlite

import (
	"context"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
)

type usersRepo struct {
	q   dbtx
	now func() time.Time
}

const userColumns = `id, username, email, first_name, last_name, password_hash, active, admin, created_at, updated_at`

func scanUser(row scanner) (domain.User, error) {
	var (
		u                domain.User
		created, updated string
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.Active, &u.Admin, &created, &updated,
	); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return domain.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (r *usersRepo) GetUserByLogin(ctx context.Context, login string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? ORDER BY username = ? DESC LIMIT 1`,
		login, login, login))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := r.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
		u.Active, u.Admin, formatTime(u.CreatedAt), formatTime(now),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateAccount(ctx context.Context, u domain.User) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`,
		u.Username, u.Email, u.FirstName, u.LastName, formatTime(r.now()), u.ID,
	))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(r.now()), userID,
	))
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`,
		active, formatTime(r.now()), userID,
	))
}

func (r *usersRepo) SetAdmin(ctx context.Context, userID string, admin bool) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE users SET admin = ?, updated_at = ? WHERE id = ?`,
		admin, formatTime(r.now()), userID,
	))
}

func (r *usersRepo) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`, username, excludeID,
	).Scan(&n)
	return n > 0, err
}

func (r *usersRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE email = ? AND id != ?`, email, excludeID,
	).Scan(&n)
	return n > 0, err
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}
