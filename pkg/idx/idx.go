// Package idx generates the lexicographically sortable identifiers used as
// primary keys for users, workouts and sessions.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID string for the current UTC time. IDs minted within the
// same millisecond still sort in creation order.
func New() string {
	return NewAt(time.Now().UTC())
}

// NewAt mints an ID whose timestamp component is t.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Valid reports whether s is a canonical ULID. Route parameters are checked
// with it before they reach the store.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
