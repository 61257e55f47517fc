package domain

import (
	"strconv"
	"strings"
	"time"
)

type Category string

const (
	Cardio        Category = "cardio"
	Resistance    Category = "resistance"
	Weightlifting Category = "weightlifting"
)

// Categories in display order.
var Categories = []Category{Cardio, Resistance, Weightlifting}

func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := descriptors[c]
	return c, ok
}

type ResistanceLevel string

const (
	LevelEasy      ResistanceLevel = "easy"
	LevelMedium    ResistanceLevel = "medium"
	LevelDifficult ResistanceLevel = "difficult"
	LevelAdvanced  ResistanceLevel = "advanced"
)

var ResistanceLevels = []ResistanceLevel{LevelEasy, LevelMedium, LevelDifficult, LevelAdvanced}

func (l ResistanceLevel) Valid() bool {
	switch l {
	case LevelEasy, LevelMedium, LevelDifficult, LevelAdvanced:
		return true
	}
	return false
}

func (l ResistanceLevel) Label() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Workout is one logged exercise. Which metric fields are meaningful depends
// on Category; the others stay zero.
type Workout struct {
	ID        string
	UserID    string
	Category  Category
	Name      string
	Date      time.Time
	Sets      int
	Reps      int
	Elapsed   time.Duration
	Distance  float64
	Weight    float64
	Level     ResistanceLevel
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Metric returns the display value of one metric field, unit applied.
func (w Workout) Metric(f MetricField, p Profile) string {
	var v string
	switch f.Key {
	case FieldSets:
		v = strconv.Itoa(w.Sets)
	case FieldReps:
		v = strconv.Itoa(w.Reps)
	case FieldElapsed:
		return FormatElapsed(w.Elapsed)
	case FieldDistance:
		v = strconv.FormatFloat(w.Distance, 'f', -1, 64)
	case FieldWeight:
		v = strconv.FormatFloat(w.Weight, 'f', -1, 64)
	case FieldLevel:
		return w.Level.Label()
	}
	if u := f.Unit(p); u != "" {
		return v + " " + u
	}
	return v
}

// Copy returns w as a new unsaved record owned by userID.
func (w Workout) Copy(userID string, now time.Time) Workout {
	c := w
	c.ID = ""
	c.UserID = userID
	c.Name = w.Name + " (copy)"
	c.Date = now
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	return c
}
