package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/billedfitness/bfl/internal/fitlog/store"
)

type workoutsRepo struct {
	q   dbtx
	now func() time.Time
}

const workoutColumns = `id, user_id, category, name, date, sets, reps, elapsed_seconds,
	distance, weight, resistance_level, created_at, updated_at`

func scanWorkout(row scanner) (domain.Workout, error) {
	var (
		w                      domain.Workout
		category, level        string
		date, created, updated string
		elapsed                int64
	)
	if err := row.Scan(
		&w.ID, &w.UserID, &category, &w.Name, &date, &w.Sets, &w.Reps, &elapsed,
		&w.Distance, &w.Weight, &level, &created, &updated,
	); err != nil {
		return domain.Workout{}, mapNotFound(err)
	}

	w.Category = domain.Category(category)
	w.Level = domain.ResistanceLevel(level)
	w.Elapsed = time.Duration(elapsed) * time.Second

	var err error
	if w.Date, err = parseTime(date); err != nil {
		return domain.Workout{}, err
	}
	if w.CreatedAt, err = parseTime(created); err != nil {
		return domain.Workout{}, err
	}
	if w.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Workout{}, err
	}
	return w, nil
}

func (r *workoutsRepo) CreateWorkout(ctx context.Context, w domain.Workout) error {
	now := formatTime(r.now())
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO workouts (`+workoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, string(w.Category), w.Name, formatTime(w.Date), w.Sets, w.Reps,
		int64(w.Elapsed/time.Second), w.Distance, w.Weight, string(w.Level), now, now,
	)
	return mapConstraint(err)
}

func (r *workoutsRepo) GetWorkout(ctx context.Context, id string) (domain.Workout, error) {
	return scanWorkout(r.q.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id))
}

func (r *workoutsRepo) UpdateWorkout(ctx context.Context, w domain.Workout) error {
	return expectOne(r.q.ExecContext(ctx, `
		UPDATE workouts
		SET name = ?, date = ?, sets = ?, reps = ?, elapsed_seconds = ?, distance = ?,
		    weight = ?, resistance_level = ?, updated_at = ?
		WHERE id = ?`,
		w.Name, formatTime(w.Date), w.Sets, w.Reps, int64(w.Elapsed/time.Second), w.Distance,
		w.Weight, string(w.Level), formatTime(r.now()), w.ID,
	))
}

func (r *workoutsRepo) DeleteWorkout(ctx context.Context, id string) error {
	return expectOne(r.q.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id))
}

func whereWorkouts(f store.WorkoutFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *workoutsRepo) ListWorkouts(ctx context.Context, f store.WorkoutFilter) ([]domain.Workout, error) {
	where, args := whereWorkouts(f)
	query := `SELECT ` + workoutColumns + ` FROM workouts` + where + ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, max(f.Offset, 0))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *workoutsRepo) CountWorkouts(ctx context.Context, f store.WorkoutFilter) (int, error) {
	where, args := whereWorkouts(f)
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM workouts`+where, args...).Scan(&n)
	return n, err
}

func (r *workoutsRepo) CountByCategory(ctx context.Context, userID string) (map[domain.Category]int, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM workouts WHERE user_id = ? GROUP BY category`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Category]int, len(domain.Categories))
	for _, c := range domain.Categories {
		out[c] = 0
	}
	for rows.Next() {
		var (
			c string
			n int
		)
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		out[domain.Category(c)] = n
	}
	return out, rows.Err()
}
