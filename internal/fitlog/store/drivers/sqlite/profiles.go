package sqlite

import (
	"context"
	"time"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
)

type profilesRepo struct {
	q   dbtx
	now func() time.Time
}

func (r *profilesRepo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var (
		p                                   domain.Profile
		weightUnit, distanceUnit, updated   string
		hideCardio, hideResist, hideLifting bool
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT user_id, weight_unit, distance_unit, weight, goal_weight, image,
		       hide_cardio, hide_resistance, hide_weightlifting, updated_at
		FROM profiles WHERE user_id = ?`, userID,
	).Scan(
		&p.UserID, &weightUnit, &distanceUnit, &p.Weight, &p.GoalWeight, &p.Image,
		&hideCardio, &hideResist, &hideLifting, &updated,
	)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}

	p.WeightUnit = domain.WeightUnit(weightUnit)
	p.DistanceUnit = domain.DistanceUnit(distanceUnit)
	p.Hidden = map[domain.Category]bool{
		domain.Cardio:        hideCardio,
		domain.Resistance:    hideResist,
		domain.Weightlifting: hideLifting,
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profiles (user_id, weight_unit, distance_unit, weight, goal_weight, image,
		                      hide_cardio, hide_resistance, hide_weightlifting, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, string(p.WeightUnit), string(p.DistanceUnit), p.Weight, p.GoalWeight, p.Image,
		p.Hides(domain.Cardio), p.Hides(domain.Resistance), p.Hides(domain.Weightlifting),
		formatTime(r.now()),
	)
	return mapConstraint(err)
}

func (r *profilesRepo) UpdatePreferences(ctx context.Context, p domain.Profile) error {
	return expectOne(r.q.ExecContext(ctx, `
		UPDATE profiles
		SET weight_unit = ?, distance_unit = ?, weight = ?, goal_weight = ?,
		    hide_cardio = ?, hide_resistance = ?, hide_weightlifting = ?, updated_at = ?
		WHERE user_id = ?`,
		string(p.WeightUnit), string(p.DistanceUnit), p.Weight, p.GoalWeight,
		p.Hides(domain.Cardio), p.Hides(domain.Resistance), p.Hides(domain.Weightlifting),
		formatTime(r.now()), p.UserID,
	))
}

func (r *profilesRepo) UpdateImage(ctx context.Context, userID, image string) error {
	return expectOne(r.q.ExecContext(ctx,
		`UPDATE profiles SET image = ?, updated_at = ? WHERE user_id = ?`,
		image, formatTime(r.now()), userID,
	))
}
