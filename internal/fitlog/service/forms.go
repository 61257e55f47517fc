package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/billedfitness/bfl/internal/fitlog/domain"
	"github.com/go-playground/validator/v10"
)

// NonFieldError is the FormErrors key for errors not tied to one input.
const NonFieldError = "_form"

// FormErrors maps a form field name to its messages. It is returned as an
// error by service methods when input is rejected and re-rendered inline.
type FormErrors map[string][]string

func (e FormErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e FormErrors) Has(field string) bool { return len(e[field]) > 0 }

func (e FormErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e[k], " "))
	}
	return "form errors: " + strings.Join(parts, "; ")
}

// orNil returns e as an error, or nil when it is empty.
func (e FormErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("@.+-_", r) {
				return false
			}
		}
		return true
	})
	return v
}

// check runs struct validation and translates failures into FormErrors.
func check(form any) FormErrors {
	errs := FormErrors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonFieldError, err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "eqfield":
		return "The two password fields didn't match."
	case "oneof":
		return "Select a valid choice."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	}
	return "Enter a valid value."
}

type RegisterForm struct {
	FirstName string `form:"first_name" validate:"required,max=30"`
	LastName  string `form:"last_name" validate:"required,max=30"`
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,max=254,email"`
	Password1 string `form:"password1" validate:"required,min=8"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

func RegisterFormFrom(v url.Values) RegisterForm {
	return RegisterForm{
		FirstName: strings.TrimSpace(v.Get("first_name")),
		LastName:  strings.TrimSpace(v.Get("last_name")),
		Username:  strings.TrimSpace(v.Get("username")),
		Email:     strings.TrimSpace(v.Get("email")),
		Password1: v.Get("password1"),
		Password2: v.Get("password2"),
	}
}

type AccountForm struct {
	FirstName string `form:"first_name" validate:"max=30"`
	LastName  string `form:"last_name" validate:"max=30"`
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,max=254,email"`
}

func AccountFormFrom(v url.Values) AccountForm {
	return AccountForm{
		FirstName: strings.TrimSpace(v.Get("first_name")),
		LastName:  strings.TrimSpace(v.Get("last_name")),
		Username:  strings.TrimSpace(v.Get("username")),
		Email:     strings.TrimSpace(v.Get("email")),
	}
}

type PasswordChangeForm struct {
	Current   string `form:"old_password" validate:"required"`
	Password1 string `form:"new_password1" validate:"required,min=8"`
	Password2 string `form:"new_password2" validate:"required,eqfield=Password1"`
}

func PasswordChangeFormFrom(v url.Values) PasswordChangeForm {
	return PasswordChangeForm{
		Current:   v.Get("old_password"),
		Password1: v.Get("new_password1"),
		Password2: v.Get("new_password2"),
	}
}

type PreferencesForm struct {
	Weight       float64             `form:"weight" validate:"gte=0"`
	GoalWeight   float64             `form:"goal_weight" validate:"gte=0"`
	WeightUnit   domain.WeightUnit   `form:"weight_unit" validate:"oneof=lbs kg st"`
	DistanceUnit domain.DistanceUnit `form:"distance_unit" validate:"oneof=mi km"`
	Hidden       []domain.Category   `form:"hidden" validate:"dive,oneof=cardio resistance weightlifting"`
}

// PreferencesFormFrom binds the settings form. Unparseable numbers are
// reported immediately since validation cannot see them.
func PreferencesFormFrom(v url.Values) (PreferencesForm, FormErrors) {
	errs := FormErrors{}
	f := PreferencesForm{
		Weight:       parseFloat(errs, "weight", v.Get("weight")),
		GoalWeight:   parseFloat(errs, "goal_weight", v.Get("goal_weight")),
		WeightUnit:   domain.WeightUnit(v.Get("weight_unit")),
		DistanceUnit: domain.DistanceUnit(v.Get("distance_unit")),
	}
	for _, h := range v["hidden"] {
		f.Hidden = append(f.Hidden, domain.Category(h))
	}
	return f, errs
}

// WorkoutInput is a bound workout form. Raw holds the submitted strings so a
// rejected form can be re-rendered exactly as typed.
type WorkoutInput struct {
	Name     string                 `form:"name" validate:"required,max=100"`
	Date     time.Time              `form:"date" validate:"-"`
	Sets     int                    `form:"sets" validate:"-"`
	Reps     int                    `form:"reps" validate:"-"`
	Elapsed  time.Duration          `form:"elapsed" validate:"-"`
	Distance float64                `form:"distance" validate:"-"`
	Weight   float64                `form:"weight" validate:"-"`
	Level    domain.ResistanceLevel `form:"level" validate:"-"`

	Raw url.Values `form:"-" validate:"-"`
}

const dateLayout = "2006-01-02"

// WorkoutInputFrom binds v against the fields d declares. Fields the category
// does not use are ignored. now bounds the date, which may not be in the future
// anywhere on Earth: one calendar day past now in UTC is the latest accepted.
func WorkoutInputFrom(d domain.Descriptor, v url.Values, now time.Time) (WorkoutInput, FormErrors) {
	in := WorkoutInput{Name: strings.TrimSpace(v.Get("name")), Raw: v}
	errs := check(in)

	if raw := strings.TrimSpace(v.Get("date")); raw == "" {
		errs.Add("date", "This field is required.")
	} else if date, err := time.ParseInLocation(dateLayout, raw, time.UTC); err != nil {
		errs.Add("date", "Enter a valid date.")
	} else if date.After(latestDate(now)) {
		errs.Add("date", "The date cannot be in the future.")
	} else {
		in.Date = date
	}

	for _, f := range d.Fields {
		key := string(f.Key)
		raw := strings.TrimSpace(v.Get(key))
		if raw == "" {
			errs.Add(key, "This field is required.")
			continue
		}

		switch f.Key {
		case domain.FieldSets, domain.FieldReps:
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs.Add(key, "Enter a whole number.")
				continue
			}
			if verr := validate.Var(n, fmt.Sprintf("min=%d", int(f.Min))); verr != nil {
				errs.Add(key, fmt.Sprintf("Ensure this value is greater than or equal to %d.", int(f.Min)))
				continue
			}
			if f.Key == domain.FieldSets {
				in.Sets = n
			} else {
				in.Reps = n
			}

		case domain.FieldDistance, domain.FieldWeight:
			x := parseFloat(errs, key, raw)
			if errs.Has(key) {
				continue
			}
			if verr := validate.Var(x, fmt.Sprintf("gte=%g", f.Min)); verr != nil {
				errs.Add(key, fmt.Sprintf("Ensure this value is greater than or equal to %g.", f.Min))
				continue
			}
			if f.Key == domain.FieldDistance {
				in.Distance = x
			} else {
				in.Weight = x
			}

		case domain.FieldElapsed:
			dur, err := domain.ParseElapsed(raw)
			if err != nil {
				errs.Add(key, "Enter time as HH:MM:SS, MM:SS or seconds.")
				continue
			}
			in.Elapsed = dur

		case domain.FieldLevel:
			lvl := domain.ResistanceLevel(raw)
			if !lvl.Valid() {
				errs.Add(key, "Select a valid choice.")
				continue
			}
			in.Level = lvl
		}
	}
	return in, errs
}

// latestDate is midnight UTC on the day after now. Users east of UTC are
// already on that date while UTC is not.
func latestDate(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Apply copies the input onto w. A date on the same day as w's keeps w's
// time of day, since the form only carries the day.
func (in WorkoutInput) Apply(w *domain.Workout) {
	w.Name = in.Name
	if w.Date.IsZero() || !sameDay(in.Date, w.Date) {
		w.Date = in.Date
	}
	w.Sets = in.Sets
	w.Reps = in.Reps
	w.Elapsed = in.Elapsed
	w.Distance = in.Distance
	w.Weight = in.Weight
	w.Level = in.Level
}

// WorkoutValues renders w the way the workout form expects its inputs.
func WorkoutValues(w domain.Workout) url.Values {
	v := url.Values{}
	v.Set("name", w.Name)
	if !w.Date.IsZero() {
		v.Set("date", w.Date.Format(dateLayout))
	}
	v.Set("sets", strconv.Itoa(w.Sets))
	v.Set("reps", strconv.Itoa(w.Reps))
	v.Set("elapsed", domain.FormatElapsed(w.Elapsed))
	v.Set("distance", strconv.FormatFloat(w.Distance, 'f', -1, 64))
	v.Set("weight", strconv.FormatFloat(w.Weight, 'f', -1, 64))
	v.Set("level", string(w.Level))
	return v
}

func parseFloat(errs FormErrors, field, raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		errs.Add(field, "Enter a number.")
		return 0
	}
	return x
}
