package sqlite

import (
	"database/sql"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/store"
)

type txStore struct {
	q   *sql.Tx
	now func() time.Time
}

func (t *txStore) Users() store.Users       { return &usersRepo{q: t.q, now: t.now} }
func (t *txStore) Profiles() store.Profiles { return &profilesRepo{q: t.q, now: t.now} }
func (t *txStore) Workouts() store.Workouts { return &workoutsRepo{q: t.q, now: t.now} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{q: t.q} }
