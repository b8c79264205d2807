// Package scoring computes heuristic life-expectancy estimates from a health
// profile using data-driven rule tables.
//
// The estimate is illustrative only. It is not a medical or statistical
// instrument and must never be presented as one.
package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// Disclaimer accompanies every estimate shown to a user.
const Disclaimer = "This estimate is a heuristic illustration, not medical advice or a statistical prediction."

// Sex is the categorical sex field of a profile.
type Sex string

// Supported sex categories.
const (
	SexUnspecified Sex = "unspecified"
	SexFemale      Sex = "female"
	SexMale        Sex = "male"
)

// ParseSex maps free-form input onto a Sex category. Anything unrecognised is
// SexUnspecified.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "female", "woman":
		return SexFemale
	case "m", "male", "man":
		return SexMale
	default:
		return SexUnspecified
	}
}

// Measurement is an optional numeric reading. The zero value is absent, which
// keeps "not provided" distinguishable from a real reading of 0.
type Measurement struct {
	Value float64
	Valid bool
}

// Measured returns a present measurement holding v.
func Measured(v float64) Measurement {
	return Measurement{Value: v, Valid: true}
}

// Absent returns a measurement with no value.
func Absent() Measurement {
	return Measurement{}
}

// MarshalJSON encodes absent measurements as null.
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as absent and numbers as present.
func (m *Measurement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Measurement{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Measured(v)
	return nil
}

// HealthProfile is the normalized set of lifestyle and clinical inputs for a
// single estimate.
type HealthProfile struct {
	Age              int         `json:"age"`
	Sex              Sex         `json:"sex"`
	BMI              Measurement `json:"bmi"`
	Diabetic         bool        `json:"diabetic"`
	SystolicBP       Measurement `json:"systolic_bp"`
	Smoker           bool        `json:"smoker"`
	SleepHours       Measurement `json:"sleep_hours"`
	ExerciseMinutes  Measurement `json:"exercise_minutes"`
	AlcoholUnits     Measurement `json:"alcohol_units"`
	FruitVegServings Measurement `json:"fruit_veg_servings"`
	StressLevel      Measurement `json:"stress_level"`
	Cholesterol      Measurement `json:"cholesterol"`
	JunkFood         bool        `json:"junk_food"`
}

// Stress level bounds.
const (
	minStress = 1
	maxStress = 10
)

// Normalize returns a copy with every field inside its declared domain:
// negative age becomes 0, non-positive BMI and negative or non-finite
// readings become absent, and stress is clamped to [1,10].
func (p HealthProfile) Normalize() HealthProfile {
	if p.Age < 0 {
		p.Age = 0
	}
	switch p.Sex {
	case SexFemale, SexMale:
	default:
		p.Sex = ParseSex(string(p.Sex))
	}
	p.BMI = nonNegative(p.BMI)
	if p.BMI.Valid && p.BMI.Value == 0 {
		p.BMI = Absent()
	}
	p.SystolicBP = nonNegative(p.SystolicBP)
	p.SleepHours = nonNegative(p.SleepHours)
	p.ExerciseMinutes = nonNegative(p.ExerciseMinutes)
	p.AlcoholUnits = nonNegative(p.AlcoholUnits)
	p.FruitVegServings = nonNegative(p.FruitVegServings)
	p.Cholesterol = nonNegative(p.Cholesterol)
	p.StressLevel = nonNegative(p.StressLevel)
	if p.StressLevel.Valid {
		p.StressLevel.Value = clamp(p.StressLevel.Value, minStress, maxStress)
	}
	return p
}

func nonNegative(m Measurement) Measurement {
	if !m.Valid || m.Value < 0 || math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
		return Absent()
	}
	return m
}

// number returns the numeric value of field f and whether it is present.
func (p HealthProfile) number(f Field) (float64, bool) {
	var m Measurement
	switch f {
	case FieldAge:
		return float64(p.Age), true
	case FieldBMI:
		m = p.BMI
	case FieldSystolicBP:
		m = p.SystolicBP
	case FieldSleepHours:
		m = p.SleepHours
	case FieldExerciseMinutes:
		m = p.ExerciseMinutes
	case FieldAlcoholUnits:
		m = p.AlcoholUnits
	case FieldFruitVegServings:
		m = p.FruitVegServings
	case FieldStressLevel:
		m = p.StressLevel
	case FieldCholesterol:
		m = p.Cholesterol
	default:
		return 0, false
	}
	return m.Value, m.Valid
}

// flag returns the boolean value of field f.
func (p HealthProfile) flag(f Field) bool {
	switch f {
	case FieldDiabetic:
		return p.Diabetic
	case FieldSmoker:
		return p.Smoker
	case FieldJunkFood:
		return p.JunkFood
	default:
		return false
	}
}

// PredictionResult holds the three derived outputs for one profile.
type PredictionResult struct {
	PredictedLifeExpectancy float64 `json:"predicted_life_expectancy"`
	YearsLeft               float64 `json:"years_left"`
	DaysLeft                int     `json:"days_left"`
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
