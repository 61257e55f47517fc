package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/internal/fitlog/store/drivers/sqlite"
	"github.com/billedfitness/bfl/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s store.Store, username, email string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New(),
		Username:     username,
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
		Active:       true,
	}
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return tx.Profiles().CreateProfile(ctx, domain.NewProfile(u.ID))
	}))
	return u
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	alice := createUser(t, s, "alice", "alice@example.com")

	got, err := s.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.True(t, got.Active)
	require.False(t, got.Admin)
	require.False(t, got.CreatedAt.IsZero())

	t.Run("login by username or email, any case", func(t *testing.T) {
		for _, login := range []string{"alice", "ALICE", "Alice@Example.com"} {
			u, err := s.Users().GetUserByLogin(ctx, login)
			require.NoError(t, err, login)
			require.Equal(t, alice.ID, u.ID)
		}
		_, err := s.Users().GetUserByLogin(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicates are rejected case-insensitively", func(t *testing.T) {
		err := s.Users().CreateUser(ctx, domain.User{ID: idx.New(), Username: "ALICE", Email: "x@example.com", PasswordHash: "h"})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
		err = s.Users().CreateUser(ctx, domain.User{ID: idx.New(), Username: "other", Email: "ALICE@example.com", PasswordHash: "h"})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("taken checks exclude self", func(t *testing.T) {
		taken, err := s.Users().EmailTaken(ctx, "alice@example.com", alice.ID)
		require.NoError(t, err)
		require.False(t, taken)

		taken, err = s.Users().EmailTaken(ctx, "Alice@example.com", "")
		require.NoError(t, err)
		require.True(t, taken)

		taken, err = s.Users().UsernameTaken(ctx, "alice", "someone-else")
		require.NoError(t, err)
		require.True(t, taken)
	})

	t.Run("flags and account update", func(t *testing.T) {
		require.NoError(t, s.Users().SetActive(ctx, alice.ID, false))
		require.NoError(t, s.Users().SetAdmin(ctx, alice.ID, true))
		alice.FirstName = "Alicia"
		alice.Email = "alicia@example.com"
		require.NoError(t, s.Users().UpdateAccount(ctx, alice))

		u, err := s.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.False(t, u.Active)
		require.True(t, u.Admin)
		require.Equal(t, "Alicia", u.FirstName)
		require.Equal(t, "alicia@example.com", u.Email)

		require.ErrorIs(t, s.Users().SetActive(ctx, "missing", true), store.ErrNotFound)
	})
}

func TestProfileCreatedWithDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := createUser(t, s, "bob", "bob@example.com")

	p, err := s.Profiles().GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultImage, p.Image)
	require.Equal(t, domain.WeightPounds, p.WeightUnit)
	require.Equal(t, domain.DistanceMiles, p.DistanceUnit)
	require.False(t, p.Hides(domain.Cardio))

	p.WeightUnit = domain.WeightKilos
	p.GoalWeight = 70
	p.Hidden[domain.Resistance] = true
	require.NoError(t, s.Profiles().UpdatePreferences(ctx, p))
	require.NoError(t, s.Profiles().UpdateImage(ctx, u.ID, "profile_pics/"+u.ID+".jpeg"))

	p, err = s.Profiles().GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.WeightKilos, p.WeightUnit)
	require.Equal(t, 70.0, p.GoalWeight)
	require.True(t, p.Hides(domain.Resistance))
	require.Equal(t, "profile_pics/"+u.ID+".jpeg", p.Image)
}

func TestWorkouts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := createUser(t, s, "carol", "carol@example.com")
	other := createUser(t, s, "dave", "dave@example.com")

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 5 {
		w := domain.Workout{
			ID:       idx.New(),
			UserID:   u.ID,
			Category: domain.Cardio,
			Name:     "Run",
			Date:     base.Add(time.Duration(i) * 24 * time.Hour),
			Sets:     1,
			Elapsed:  30 * time.Minute,
			Distance: 5.5,
		}
		require.NoError(t, s.Workouts().CreateWorkout(ctx, w))
		ids = append(ids, w.ID)
	}
	require.NoError(t, s.Workouts().CreateWorkout(ctx, domain.Workout{
		ID: idx.New(), UserID: other.ID, Category: domain.Weightlifting, Name: "Squat",
		Date: base, Sets: 5, Reps: 5, Weight: 100,
	}))

	got, err := s.Workouts().GetWorkout(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, got.Elapsed)
	require.Equal(t, 5.5, got.Distance)
	require.True(t, got.Date.Equal(base))

	page, err := s.Workouts().ListWorkouts(ctx, store.WorkoutFilter{UserID: u.ID, Category: domain.Cardio, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, ids[3], page[0].ID, "newest first")
	require.Equal(t, ids[2], page[1].ID)

	n, err := s.Workouts().CountWorkouts(ctx, store.WorkoutFilter{})
	require.NoError(t, err)
	require.Equal(t, 6, n)

	counts, err := s.Workouts().CountByCategory(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 5, counts[domain.Cardio])
	require.Equal(t, 0, counts[domain.Resistance])

	got.Name = "Long run"
	got.Elapsed = time.Hour
	require.NoError(t, s.Workouts().UpdateWorkout(ctx, got))
	got, err = s.Workouts().GetWorkout(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, "Long run", got.Name)
	require.Equal(t, time.Hour, got.Elapsed)

	require.NoError(t, s.Workouts().DeleteWorkout(ctx, ids[0]))
	_, err = s.Workouts().GetWorkout(ctx, ids[0])
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Workouts().DeleteWorkout(ctx, ids[0]), store.ErrNotFound)
}

func TestWorkoutRequiresExistingUser(t *testing.T) {
	s := newTestStore(t)
	err := s.Workouts().CreateWorkout(context.Background(), domain.Workout{
		ID: idx.New(), UserID: "ghost", Category: domain.Cardio, Name: "x", Date: time.Now(),
	})
	require.Error(t, err)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := createUser(t, s, "erin", "erin@example.com")
	now := time.Now().UTC()

	mk := func(expires time.Time) string {
		id := idx.New()
		require.NoError(t, s.Sessions().CreateSession(ctx, domain.Session{
			ID: id, UserID: u.ID, UserAgent: "test", IP: "127.0.0.1", CreatedAt: now, ExpiresAt: expires,
		}))
		return id
	}
	current := mk(now.Add(time.Hour))
	other := mk(now.Add(time.Hour))
	expired := mk(now.Add(-time.Minute))

	sess, err := s.Sessions().GetSession(ctx, current)
	require.NoError(t, err)
	require.True(t, sess.Valid(now))

	require.NoError(t, s.Sessions().RevokeUserSessions(ctx, u.ID, current))
	sess, err = s.Sessions().GetSession(ctx, other)
	require.NoError(t, err)
	require.True(t, sess.Revoked)

	n, err := s.Sessions().DeleteStaleSessions(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, err = s.Sessions().GetSession(ctx, expired)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Sessions().GetSession(ctx, current)
	require.NoError(t, err)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, domain.User{
			ID: idx.New(), Username: "frank", Email: "frank@example.com", PasswordHash: "h",
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestApplyMigrationsTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Ping(ctx))
	createUser(t, s, "gina", "gina@example.com")
	require.NoError(t, s.ApplyMigrations())

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}
