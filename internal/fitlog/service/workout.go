package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/idx"
	"github.com/billedfitness/bfl/pkg/slogx"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	RecentPerKind   = 5

	maxNameLen = 100
)

type WorkoutService struct {
	Store store.Store

	Now func() time.Time
}

func (s *WorkoutService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Page is one page of a workout listing.
type Page struct {
	Workouts []domain.Workout
	Number   int
	Size     int
	Total    int
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number*p.Size < p.Total }
func (p Page) Prev() int     { return p.Number - 1 }
func (p Page) Next() int     { return p.Number + 1 }

func (p Page) Pages() int {
	if p.Size == 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// NormalizePage clamps page and size to sane bounds.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

func describe(c domain.Category) (domain.Descriptor, error) {
	d, ok := domain.Describe(c)
	if !ok {
		return domain.Descriptor{}, ErrUnknownCategory
	}
	return d, nil
}

func (s *WorkoutService) list(ctx context.Context, f store.WorkoutFilter, page, size int) (Page, error) {
	page, size = NormalizePage(page, size)
	f.Limit = size
	f.Offset = (page - 1) * size

	total, err := s.Store.Workouts().CountWorkouts(ctx, f)
	if err != nil {
		return Page{}, err
	}
	ws, err := s.Store.Workouts().ListWorkouts(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Workouts: ws, Number: page, Size: size, Total: total}, nil
}

// List returns actor's own workouts in category c, newest first.
func (s *WorkoutService) List(ctx context.Context, actor domain.User, c domain.Category, page, size int) (Page, error) {
	if _, err := describe(c); err != nil {
		return Page{}, err
	}
	return s.list(ctx, store.WorkoutFilter{UserID: actor.ID, Category: c}, page, size)
}

// AdminFilter narrows the admin listing. Empty fields match everything.
type AdminFilter struct {
	Category domain.Category
	Username string
}

// ListAll is the admin listing across every user.
func (s *WorkoutService) ListAll(ctx context.Context, actor domain.User, af AdminFilter, page, size int) (Page, error) {
	if !actor.Admin {
		return Page{}, ErrForbidden
	}

	var f store.WorkoutFilter
	if af.Category != "" {
		if _, err := describe(af.Category); err != nil {
			return Page{}, err
		}
		f.Category = af.Category
	}
	if af.Username != "" {
		u, err := s.Store.Users().GetUserByUsername(ctx, af.Username)
		if errors.Is(err, store.ErrNotFound) {
			page, size = NormalizePage(page, size)
			return Page{Number: page, Size: size}, nil
		}
		if err != nil {
			return Page{}, err
		}
		f.UserID = u.ID
	}
	return s.list(ctx, f, page, size)
}

// Recent returns up to RecentPerKind of u's latest workouts per visible category.
func (s *WorkoutService) Recent(ctx context.Context, u domain.User, p domain.Profile) (map[domain.Category][]domain.Workout, error) {
	out := make(map[domain.Category][]domain.Workout)
	for _, c := range p.VisibleCategories() {
		ws, err := s.Store.Workouts().ListWorkouts(ctx, store.WorkoutFilter{
			UserID:   u.ID,
			Category: c,
			Limit:    RecentPerKind,
		})
		if err != nil {
			return nil, err
		}
		out[c] = ws
	}
	return out, nil
}

// Get loads workout id of category c for actor. A missing record, or one in
// another category, is store.ErrNotFound; someone else's record is ErrForbidden
// unless actor is an admin.
func (s *WorkoutService) Get(ctx context.Context, actor domain.User, c domain.Category, id string) (domain.Workout, error) {
	if _, err := describe(c); err != nil {
		return domain.Workout{}, err
	}
	if !idx.Valid(id) {
		return domain.Workout{}, store.ErrNotFound
	}

	w, err := s.Store.Workouts().GetWorkout(ctx, id)
	if err != nil {
		return domain.Workout{}, err
	}
	if w.Category != c {
		return domain.Workout{}, store.ErrNotFound
	}
	if !actor.CanAccess(w.UserID) {
		slogx.FromContext(ctx).Warn("workout access denied",
			slog.String("actor_id", actor.ID),
			slog.String("workout_id", w.ID),
		)
		return domain.Workout{}, ErrForbidden
	}
	return w, nil
}

// Create binds v to a new workout of category c owned by actor.
func (s *WorkoutService) Create(ctx context.Context, actor domain.User, c domain.Category, v url.Values) (domain.Workout, error) {
	d, err := describe(c)
	if err != nil {
		return domain.Workout{}, err
	}
	now := s.now()
	in, errs := WorkoutInputFrom(d, v, now)
	if err := errs.orNil(); err != nil {
		return domain.Workout{}, err
	}

	w := domain.Workout{ID: idx.NewAt(now), UserID: actor.ID, Category: c}
	in.Apply(&w)
	if err := s.Store.Workouts().CreateWorkout(ctx, w); err != nil {
		return domain.Workout{}, err
	}

	slogx.FromContext(ctx).Info("workout created",
		slog.String("workout_id", w.ID),
		slog.String("category", string(c)),
	)
	return w, nil
}

// Update binds v onto the existing workout.
func (s *WorkoutService) Update(ctx context.Context, actor domain.User, c domain.Category, id string, v url.Values) (domain.Workout, error) {
	w, err := s.Get(ctx, actor, c, id)
	if err != nil {
		return domain.Workout{}, err
	}
	d, _ := domain.Describe(c)

	in, errs := WorkoutInputFrom(d, v, s.now())
	if err := errs.orNil(); err != nil {
		return w, err
	}
	in.Apply(&w)
	if err := s.Store.Workouts().UpdateWorkout(ctx, w); err != nil {
		return w, err
	}
	return w, nil
}

func (s *WorkoutService) Delete(ctx context.Context, actor domain.User, c domain.Category, id string) (domain.Workout, error) {
	w, err := s.Get(ctx, actor, c, id)
	if err != nil {
		return domain.Workout{}, err
	}
	if err := s.Store.Workouts().DeleteWorkout(ctx, w.ID); err != nil {
		return domain.Workout{}, err
	}
	slogx.FromContext(ctx).Info("workout deleted", slog.String("workout_id", w.ID))
	return w, nil
}

// Duplicate copies a workout into a new record owned by actor, dated now.
func (s *WorkoutService) Duplicate(ctx context.Context, actor domain.User, c domain.Category, id string) (domain.Workout, error) {
	w, err := s.Get(ctx, actor, c, id)
	if err != nil {
		return domain.Workout{}, err
	}

	now := s.now()
	dup := w.Copy(actor.ID, now)
	dup.ID = idx.NewAt(now)
	if r := []rune(dup.Name); len(r) > maxNameLen {
		dup.Name = string(r[:maxNameLen])
	}
	if err := s.Store.Workouts().CreateWorkout(ctx, dup); err != nil {
		return domain.Workout{}, err
	}
	return dup, nil
}

// OwnerProfile returns the profile whose units a workout is displayed in.
func (s *WorkoutService) OwnerProfile(ctx context.Context, w domain.Workout) (domain.Profile, error) {
	return s.Store.Profiles().GetProfile(ctx, w.UserID)
}
