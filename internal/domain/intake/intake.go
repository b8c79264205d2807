// Package intake turns untyped request fields into a scoring.HealthProfile.
//
// Coercion never fails: empty or unparsable optional values become absent,
// and age falls back to 0. Validate reports whether the required fields
// were actually supplied.
package intake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

// Values is a read-only view of submitted string fields. url.Values
// satisfies it.
type Values interface {
	Get(key string) string
}

// Fields is a flat map of field values.
type Fields map[string]string

// Get returns the value for key, or "".
func (f Fields) Get(key string) string { return f[key] }

// Representative systolic readings for the legacy three-level field.
const (
	legacyHighSystolic   = 145
	legacyNormalSystolic = 118
	legacyLowSystolic    = 100
)

// Legacy forms count exercise in 30 minute sessions per week and answer
// alcohol with yes/no; yes maps to a moderate weekly intake.
const (
	legacySessionMinutes = 30
	legacyAlcoholUnits   = 8
)

var keys = map[scoring.Field][]string{
	scoring.FieldAge:              {"age"},
	scoring.FieldSex:              {"sex", "gender"},
	scoring.FieldBMI:              {"bmi"},
	scoring.FieldDiabetic:         {"diabetic"},
	scoring.FieldSystolicBP:       {"systolic_bp", "systolic"},
	scoring.FieldSmoker:           {"smoker", "smoking"},
	scoring.FieldSleepHours:       {"sleep_hours", "sleep"},
	scoring.FieldExerciseMinutes:  {"exercise_minutes"},
	scoring.FieldAlcoholUnits:     {"alcohol_units"},
	scoring.FieldFruitVegServings: {"fruit_veg_servings", "fruit_veg"},
	scoring.FieldStressLevel:      {"stress_level", "stress"},
	scoring.FieldCholesterol:      {"cholesterol"},
	scoring.FieldJunkFood:         {"junk_food"},
}

func lookup(v Values, f scoring.Field) string {
	for _, k := range keys[f] {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

// Coerce builds a normalized profile from v.
func Coerce(v Values) scoring.HealthProfile {
	p := scoring.HealthProfile{
		Sex:              scoring.ParseSex(lookup(v, scoring.FieldSex)),
		BMI:              measurement(lookup(v, scoring.FieldBMI)),
		Diabetic:         Bool(lookup(v, scoring.FieldDiabetic)),
		SystolicBP:       measurement(lookup(v, scoring.FieldSystolicBP)),
		Smoker:           Bool(lookup(v, scoring.FieldSmoker)),
		SleepHours:       measurement(lookup(v, scoring.FieldSleepHours)),
		ExerciseMinutes:  measurement(lookup(v, scoring.FieldExerciseMinutes)),
		AlcoholUnits:     measurement(lookup(v, scoring.FieldAlcoholUnits)),
		FruitVegServings: measurement(lookup(v, scoring.FieldFruitVegServings)),
		StressLevel:      measurement(lookup(v, scoring.FieldStressLevel)),
		Cholesterol:      measurement(lookup(v, scoring.FieldCholesterol)),
		JunkFood:         Bool(lookup(v, scoring.FieldJunkFood)),
	}
	if age, ok := number(lookup(v, scoring.FieldAge)); ok {
		p.Age = int(math.Floor(age))
	}

	if !p.SystolicBP.Valid {
		p.SystolicBP = legacyBloodPressure(v.Get("blood_pressure"))
	}
	if !p.ExerciseMinutes.Valid {
		if n, ok := number(v.Get("exercise")); ok {
			p.ExerciseMinutes = scoring.Measured(n * legacySessionMinutes)
		}
	}
	if !p.AlcoholUnits.Valid {
		p.AlcoholUnits = legacyAlcohol(v.Get("alcohol"))
	}
	return p.Normalize()
}

func legacyBloodPressure(s string) scoring.Measurement {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return scoring.Measured(legacyHighSystolic)
	case "normal":
		return scoring.Measured(legacyNormalSystolic)
	case "low":
		return scoring.Measured(legacyLowSystolic)
	default:
		return scoring.Absent()
	}
}

func legacyAlcohol(s string) scoring.Measurement {
	s = strings.TrimSpace(s)
	if s == "" {
		return scoring.Absent()
	}
	if n, ok := number(s); ok {
		return scoring.Measured(n)
	}
	if Bool(s) {
		return scoring.Measured(legacyAlcoholUnits)
	}
	return scoring.Measured(0)
}

// Bool reports whether s is an affirmative answer: yes, y, true, on or 1.
func Bool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "on", "1":
		return true
	default:
		return false
	}
}

func number(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func measurement(s string) scoring.Measurement {
	if n, ok := number(s); ok {
		return scoring.Measured(n)
	}
	return scoring.Absent()
}

// FromJSON flattens a JSON object into Fields. Numbers keep their literal
// text, booleans become "true"/"false" and null becomes "". Nested values
// are rejected.
func FromJSON(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = t
		case json.Number:
			out[k] = t.String()
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			return nil, &FieldError{Field: k, Err: ErrInvalid}
		}
	}
	return out, nil
}
