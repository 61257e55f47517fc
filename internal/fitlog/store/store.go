package store

import (
	"context"
	"errors"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers implement it and expose
// sub-repositories; a Tx exposes the same repositories bound to one transaction.
type Store interface {
	Users() Users
	Profiles() Profiles
	Workouts() Workouts
	Sessions() Sessions

	ApplyMigrations() error

	// WithTx executes fn within a transaction, committing when fn returns nil.
	// Inside fn only tx may be used: the outer Store would wait on the
	// connection the transaction holds.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the repositories.
type Tx interface {
	Users() Users
	Profiles() Profiles
	Workouts() Workouts
	Sessions() Sessions
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByLogin matches username or email, case-insensitively.
	GetUserByLogin(ctx context.Context, login string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user. Returns ErrAlreadyExists on a username or
	// email collision.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateAccount writes username, email and names, bumping updated_at.
	UpdateAccount(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	SetActive(ctx context.Context, userID string, active bool) error
	SetAdmin(ctx context.Context, userID string, admin bool) error

	// UsernameTaken and EmailTaken ignore the row with id excludeID, so an
	// update that keeps its own value is not a collision.
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)

	// ListUsers returns every user ordered by username.
	ListUsers(ctx context.Context) ([]domain.User, error)

	IsEmpty(ctx context.Context) (bool, error)
}

type Profiles interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	CreateProfile(ctx context.Context, p domain.Profile) error

	// UpdatePreferences writes units, weights and hidden categories.
	UpdatePreferences(ctx context.Context, p domain.Profile) error

	UpdateImage(ctx context.Context, userID, image string) error
}

// WorkoutFilter narrows ListWorkouts and CountWorkouts. Zero values match everything.
type WorkoutFilter struct {
	UserID   string
	Category domain.Category
	Limit    int
	Offset   int
}

type Workouts interface {
	CreateWorkout(ctx context.Context, w domain.Workout) error
	GetWorkout(ctx context.Context, id string) (domain.Workout, error)

	// UpdateWorkout writes name, date and metrics. Category and owner never change.
	UpdateWorkout(ctx context.Context, w domain.Workout) error

	DeleteWorkout(ctx context.Context, id string) error

	// ListWorkouts returns matches newest first (date, then id).
	ListWorkouts(ctx context.Context, f WorkoutFilter) ([]domain.Workout, error)
	CountWorkouts(ctx context.Context, f WorkoutFilter) (int, error)

	// CountByCategory returns the number of workouts per category for a user.
	CountByCategory(ctx context.Context, userID string) (map[domain.Category]int, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	RevokeSession(ctx context.Context, id string) error

	// RevokeUserSessions revokes every session of userID except keepID.
	RevokeUserSessions(ctx context.Context, userID, keepID string) error

	// DeleteStaleSessions removes sessions that are revoked or expired at now
	// and returns how many were removed.
	DeleteStaleSessions(ctx context.Context, now time.Time) (int64, error)
}
