package domain

type FieldKey string

const (
	FieldSets     FieldKey = "sets"
	FieldReps     FieldKey = "reps"
	FieldElapsed  FieldKey = "elapsed"
	FieldDistance FieldKey = "distance"
	FieldWeight   FieldKey = "weight"
	FieldLevel    FieldKey = "level"
)

// MetricField describes one input on a workout form and one row on its detail page.
type MetricField struct {
	Key   FieldKey
	Label string
	Input string  // HTML input type
	Min   float64 // inclusive lower bound for numeric fields
	Step  string
	Help  string

	unit func(Profile) string
}

// Unit is the unit suffix for p's preferences, empty when unitless.
func (f MetricField) Unit(p Profile) string {
	if f.unit == nil {
		return ""
	}
	return f.unit(p)
}

// Descriptor drives the generic workout handlers for one category.
type Descriptor struct {
	Category Category
	Label    string // "Cardio"
	Noun     string // "cardio workout"
	Fields   []MetricField
}

func (d Descriptor) Has(k FieldKey) bool {
	for _, f := range d.Fields {
		if f.Key == k {
			return true
		}
	}
	return false
}

func weightUnit(p Profile) string {
	if !p.WeightUnit.Valid() {
		return string(WeightPounds)
	}
	return string(p.WeightUnit)
}

func distanceUnit(p Profile) string {
	if !p.DistanceUnit.Valid() {
		return string(DistanceMiles)
	}
	return string(p.DistanceUnit)
}

var (
	setsField = MetricField{Key: FieldSets, Label: "Sets", Input: "number", Min: 1, Step: "1"}
	repsField = MetricField{Key: FieldReps, Label: "Reps", Input: "number", Min: 1, Step: "1"}
)

var descriptors = map[Category]Descriptor{
	Cardio: {
		Category: Cardio,
		Label:    "Cardio",
		Noun:     "cardio workout",
		Fields: []MetricField{
			setsField,
			{Key: FieldElapsed, Label: "Time", Input: "text", Help: "HH:MM:SS, MM:SS or seconds"},
			{Key: FieldDistance, Label: "Distance", Input: "number", Min: 0, Step: "0.01", unit: distanceUnit},
		},
	},
	Resistance: {
		Category: Resistance,
		Label:    "Resistance",
		Noun:     "resistance workout",
		Fields: []MetricField{
			setsField,
			repsField,
			{Key: FieldLevel, Label: "Resistance", Input: "select"},
		},
	},
	Weightlifting: {
		Category: Weightlifting,
		Label:    "Weightlifting",
		Noun:     "weightlifting workout",
		Fields: []MetricField{
			setsField,
			repsField,
			{Key: FieldWeight, Label: "Weight", Input: "number", Min: 0, Step: "0.5", unit: weightUnit},
		},
	},
}

// Describe returns the descriptor for c. ok is false for unknown categories.
func Describe(c Category) (Descriptor, bool) {
	d, ok := descriptors[c]
	return d, ok
}

func (c Category) Label() string {
	if d, ok := descriptors[c]; ok {
		return d.Label
	}
	return string(c)
}
