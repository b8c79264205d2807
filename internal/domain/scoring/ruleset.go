package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Field names a HealthProfile input a rule can read.
type Field string

// Known profile fields.
const (
	FieldAge              Field = "age"
	FieldSex              Field = "sex"
	FieldBMI              Field = "bmi"
	FieldDiabetic         Field = "diabetic"
	FieldSystolicBP       Field = "systolic_bp"
	FieldSmoker           Field = "smoker"
	FieldSleepHours       Field = "sleep_hours"
	FieldExerciseMinutes  Field = "exercise_minutes"
	FieldAlcoholUnits     Field = "alcohol_units"
	FieldFruitVegServings Field = "fruit_veg_servings"
	FieldStressLevel      Field = "stress_level"
	FieldCholesterol      Field = "cholesterol"
	FieldJunkFood         Field = "junk_food"
)

type fieldType int

const (
	fieldUnknown fieldType = iota
	fieldNumeric
	fieldBool
	fieldCategory
)

func (f Field) kind() fieldType {
	switch f {
	case FieldAge, FieldBMI, FieldSystolicBP, FieldSleepHours, FieldExerciseMinutes,
		FieldAlcoholUnits, FieldFruitVegServings, FieldStressLevel, FieldCholesterol:
		return fieldNumeric
	case FieldDiabetic, FieldSmoker, FieldJunkFood:
		return fieldBool
	case FieldSex:
		return fieldCategory
	default:
		return fieldUnknown
	}
}

// RuleKind selects how a rule turns a field value into an adjustment.
type RuleKind string

// Supported rule kinds.
const (
	// KindBands applies the delta of the first band containing the value.
	KindBands RuleKind = "bands"
	// KindCategory looks the categorical value up in Categories.
	KindCategory RuleKind = "category"
	// KindFlag applies WhenTrue when the boolean field is set.
	KindFlag RuleKind = "flag"
	// KindScale applies Factor * clamp(value - Pivot, Min, Max).
	KindScale RuleKind = "scale"
)

// Band is a half-open interval [Min, Max) with a delta. A nil bound is
// unbounded on that side. MaxInclusive closes the upper bound.
type Band struct {
	Min          *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max          *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	MaxInclusive bool     `yaml:"max_inclusive,omitempty" json:"max_inclusive,omitempty"`
	Delta        float64  `yaml:"delta" json:"delta"`
}

func (b Band) contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil {
		if b.MaxInclusive {
			return v <= *b.Max
		}
		return v < *b.Max
	}
	return true
}

// Scale is a linear adjustment around a pivot with optional clamping of the
// offset.
type Scale struct {
	Factor float64  `yaml:"factor" json:"factor"`
	Pivot  float64  `yaml:"pivot" json:"pivot"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Rule is one threshold or categorical adjustment over exactly one field.
type Rule struct {
	Name       string             `yaml:"name" json:"name"`
	Field      Field              `yaml:"field" json:"field"`
	Kind       RuleKind           `yaml:"kind" json:"kind"`
	Bands      []Band             `yaml:"bands,omitempty" json:"bands,omitempty"`
	Categories map[string]float64 `yaml:"categories,omitempty" json:"categories,omitempty"`
	WhenTrue   float64            `yaml:"when_true,omitempty" json:"when_true,omitempty"`
	Scale      *Scale             `yaml:"scale,omitempty" json:"scale,omitempty"`
}

// delta computes the adjustment of r for p. Absent measurements yield 0.
func (r Rule) delta(p HealthProfile) float64 {
	switch r.Kind {
	case KindFlag:
		if p.flag(r.Field) {
			return r.WhenTrue
		}
		return 0
	case KindCategory:
		return r.Categories[string(p.Sex)]
	case KindBands:
		v, ok := p.number(r.Field)
		if !ok {
			return 0
		}
		for _, b := range r.Bands {
			if b.contains(v) {
				return b.Delta
			}
		}
		return 0
	case KindScale:
		v, ok := p.number(r.Field)
		if !ok || r.Scale == nil {
			return 0
		}
		offset := v - r.Scale.Pivot
		if r.Scale.Min != nil {
			offset = math.Max(*r.Scale.Min, offset)
		}
		if r.Scale.Max != nil {
			offset = math.Min(*r.Scale.Max, offset)
		}
		return r.Scale.Factor * offset
	default:
		return 0
	}
}

// ClampBand bounds the final expectancy. Max is optional; a nil Max leaves
// the band open above (a hard floor only).
type ClampBand struct {
	Min float64  `yaml:"min" json:"min"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

func (c ClampBand) apply(v float64) float64 {
	v = math.Max(c.Min, v)
	if c.Max != nil {
		v = math.Min(*c.Max, v)
	}
	return v
}

// Contains reports whether v lies inside the band.
func (c ClampBand) Contains(v float64) bool {
	if v < c.Min {
		return false
	}
	return c.Max == nil || v <= *c.Max
}

// RuleSet is a named, ordered rule table applied to a base expectancy.
type RuleSet struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Base        float64   `yaml:"base" json:"base"`
	Rules       []Rule    `yaml:"rules" json:"rules"`
	Clamp       ClampBand `yaml:"clamp" json:"clamp"`
	// RoundTotal rounds the running total to a whole number before clamping.
	RoundTotal bool `yaml:"round_total,omitempty" json:"round_total,omitempty"`
}

// Validate checks that every rule reads a known field with a kind matching
// the field's type and that all bounds are finite and ordered.
func (rs RuleSet) Validate() error {
	if strings.TrimSpace(rs.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRuleSet)
	}
	if !finite(rs.Base) {
		return fmt.Errorf("%w: %s: base must be finite", ErrInvalidRuleSet, rs.Name)
	}
	if !finite(rs.Clamp.Min) || (rs.Clamp.Max != nil && (!finite(*rs.Clamp.Max) || *rs.Clamp.Max < rs.Clamp.Min)) {
		return fmt.Errorf("%w: %s: invalid clamp band", ErrInvalidRuleSet, rs.Name)
	}
	for i, r := range rs.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("%w: %s: rule %d (%s): %v", ErrInvalidRuleSet, rs.Name, i, r.Name, err)
		}
	}
	return nil
}

func (r Rule) validate() error {
	ft := r.Field.kind()
	if ft == fieldUnknown {
		return fmt.Errorf("unknown field %q", r.Field)
	}
	switch r.Kind {
	case KindBands:
		if ft != fieldNumeric {
			return fmt.Errorf("bands need a numeric field")
		}
		if len(r.Bands) == 0 {
			return fmt.Errorf("no bands")
		}
		for _, b := range r.Bands {
			if (b.Min != nil && !finite(*b.Min)) || (b.Max != nil && !finite(*b.Max)) || !finite(b.Delta) {
				return fmt.Errorf("band bounds must be finite")
			}
			if b.Min != nil && b.Max != nil && *b.Max < *b.Min {
				return fmt.Errorf("band max below min")
			}
		}
	case KindCategory:
		if ft != fieldCategory {
			return fmt.Errorf("category needs a categorical field")
		}
		for _, d := range r.Categories {
			if !finite(d) {
				return fmt.Errorf("category deltas must be finite")
			}
		}
	case KindFlag:
		if ft != fieldBool {
			return fmt.Errorf("flag needs a boolean field")
		}
		if !finite(r.WhenTrue) {
			return fmt.Errorf("flag delta must be finite")
		}
	case KindScale:
		if ft != fieldNumeric {
			return fmt.Errorf("scale needs a numeric field")
		}
		if r.Scale == nil || !finite(r.Scale.Factor) || !finite(r.Scale.Pivot) {
			return fmt.Errorf("scale parameters missing")
		}
		if r.Scale.Min != nil && r.Scale.Max != nil && *r.Scale.Max < *r.Scale.Min {
			return fmt.Errorf("scale max below min")
		}
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a rule set held by an
// engine.
func (rs RuleSet) Clone() RuleSet {
	out := rs
	out.Clamp.Max = clonePtr(rs.Clamp.Max)
	out.Rules = make([]Rule, len(rs.Rules))
	for i, r := range rs.Rules {
		c := r
		if r.Bands != nil {
			c.Bands = make([]Band, len(r.Bands))
			for j, b := range r.Bands {
				c.Bands[j] = Band{Min: clonePtr(b.Min), Max: clonePtr(b.Max), MaxInclusive: b.MaxInclusive, Delta: b.Delta}
			}
		}
		if r.Categories != nil {
			c.Categories = make(map[string]float64, len(r.Categories))
			for k, v := range r.Categories {
				c.Categories[k] = v
			}
		}
		if r.Scale != nil {
			s := *r.Scale
			s.Min = clonePtr(r.Scale.Min)
			s.Max = clonePtr(r.Scale.Max)
			c.Scale = &s
		}
		out.Rules[i] = c
	}
	return out
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Bound returns a pointer to v, for building bands and clamp bands.
func Bound(v float64) *float64 {
	return &v
}
