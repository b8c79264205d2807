package scoring

import "math"

const daysPerYear = 365

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRuleSet selects the rule table the engine applies. The rule set is
// copied; later changes by the caller have no effect on the engine.
func WithRuleSet(rs RuleSet) Option {
	return func(e *Engine) {
		e.rules = rs.Clone()
	}
}

// Adjustment is the contribution of one rule to the running total.
type Adjustment struct {
	Rule  string  `json:"rule"`
	Field Field   `json:"field"`
	Delta float64 `json:"delta"`
}

// Evaluation is a PredictionResult together with how it was reached.
type Evaluation struct {
	RuleSet     string           `json:"ruleset"`
	Base        float64          `json:"base"`
	Adjustments []Adjustment     `json:"adjustments"`
	RawTotal    float64          `json:"raw_total"`
	Result      PredictionResult `json:"result"`
}

// Engine applies one rule set. It holds no mutable state, so a single Engine
// can be shared by any number of goroutines.
type Engine struct {
	rules RuleSet
}

// NewEngine creates an engine. Without options it applies Standard().
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: Standard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RuleSet returns a copy of the rule table in use.
func (e *Engine) RuleSet() RuleSet {
	return e.rules.Clone()
}

// Score maps a profile to a prediction. It never fails: absent or malformed
// fields are normalized to documented fallbacks first.
func (e *Engine) Score(p HealthProfile) PredictionResult {
	return e.Evaluate(p).Result
}

// Evaluate scores p and reports the pre-clamp total and every adjustment.
func (e *Engine) Evaluate(p HealthProfile) Evaluation {
	p = p.Normalize()

	ev := Evaluation{
		RuleSet:     e.rules.Name,
		Base:        e.rules.Base,
		Adjustments: make([]Adjustment, 0, len(e.rules.Rules)),
	}
	total := e.rules.Base
	for _, r := range e.rules.Rules {
		d := r.delta(p)
		total += d
		ev.Adjustments = append(ev.Adjustments, Adjustment{Rule: r.Name, Field: r.Field, Delta: d})
	}
	ev.RawTotal = total

	if e.rules.RoundTotal {
		total = math.Round(total)
	}
	// The band is applied once, to the finished sum.
	total = e.rules.Clamp.apply(total)

	expectancy := roundTenth(total)
	yearsLeft := roundTenth(math.Max(0, total-float64(p.Age)))
	ev.Result = PredictionResult{
		PredictedLifeExpectancy: expectancy,
		YearsLeft:               yearsLeft,
		DaysLeft:                daysIn(yearsLeft),
	}
	return ev
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// daysIn returns floor(years * 365) for a value already rounded to tenths,
// computed on whole tenths so float error cannot shift the floor.
func daysIn(years float64) int {
	tenths := int64(math.Round(years * 10))
	return int(tenths * daysPerYear / 10)
}
