package domain

import "time"

// DefaultImage is the avatar every profile starts with.
const DefaultImage = "default.jpeg"

type WeightUnit string

const (
	WeightPounds WeightUnit = "lbs"
	WeightKilos  WeightUnit = "kg"
	WeightStone  WeightUnit = "st"
)

var WeightUnits = []WeightUnit{WeightPounds, WeightKilos, WeightStone}

func (u WeightUnit) Valid() bool {
	switch u {
	case WeightPounds, WeightKilos, WeightStone:
		return true
	}
	return false
}

func (u WeightUnit) Label() string {
	switch u {
	case WeightKilos:
		return "Kilograms"
	case WeightStone:
		return "Stone"
	default:
		return "Pounds"
	}
}

type DistanceUnit string

const (
	DistanceMiles      DistanceUnit = "mi"
	DistanceKilometres DistanceUnit = "km"
)

var DistanceUnits = []DistanceUnit{DistanceMiles, DistanceKilometres}

func (u DistanceUnit) Valid() bool {
	return u == DistanceMiles || u == DistanceKilometres
}

func (u DistanceUnit) Label() string {
	if u == DistanceKilometres {
		return "Kilometres"
	}
	return "Miles"
}

type Profile struct {
	UserID       string
	WeightUnit   WeightUnit
	DistanceUnit DistanceUnit
	Weight       float64
	GoalWeight   float64
	Image        string // path relative to the media root
	Hidden       map[Category]bool
	UpdatedAt    time.Time
}

// NewProfile returns the profile created alongside a new user.
func NewProfile(userID string) Profile {
	return Profile{
		UserID:       userID,
		WeightUnit:   WeightPounds,
		DistanceUnit: DistanceMiles,
		Image:        DefaultImage,
		Hidden:       map[Category]bool{},
	}
}

func (p Profile) Hides(c Category) bool { return p.Hidden[c] }

// VisibleCategories lists categories in display order, minus hidden ones.
func (p Profile) VisibleCategories() []Category {
	out := make([]Category, 0, len(Categories))
	for _, c := range Categories {
		if !p.Hides(c) {
			out = append(out, c)
		}
	}
	return out
}
