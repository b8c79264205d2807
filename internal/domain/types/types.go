// Package types contains the API views exchanged with clients.
package types

import (
	"time"

	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser converts a model user.
func NewUser(u *model.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

// Login is returned by a successful login.
type Login struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Prediction is a stored estimate with its explanation.
type Prediction struct {
	ID                      string                `json:"id"`
	RuleSet                 string                `json:"ruleset"`
	Profile                 scoring.HealthProfile `json:"profile"`
	PredictedLifeExpectancy float64               `json:"predicted_life_expectancy"`
	YearsLeft               float64               `json:"years_left"`
	DaysLeft                int                   `json:"days_left"`
	Adjustments             []scoring.Adjustment  `json:"adjustments,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
	Disclaimer              string                `json:"disclaimer"`
}

// NewPrediction converts a model prediction.
func NewPrediction(p *model.Prediction) Prediction {
	return Prediction{
		ID:                      p.ID,
		RuleSet:                 p.RuleSet,
		Profile:                 p.Profile,
		PredictedLifeExpectancy: p.Result.PredictedLifeExpectancy,
		YearsLeft:               p.Result.YearsLeft,
		DaysLeft:                p.Result.DaysLeft,
		Adjustments:             p.Adjustments,
		CreatedAt:               p.CreatedAt,
		Disclaimer:              scoring.Disclaimer,
	}
}

// Submission acknowledges POST /predictions. Duplicate is set when the
// idempotency key was already used; Prediction is then omitted.
type Submission struct {
	Duplicate  bool        `json:"duplicate"`
	Prediction *Prediction `json:"prediction,omitempty"`
}

// Preview is an unsaved estimate with its explanation.
type Preview struct {
	scoring.Evaluation
	Disclaimer string `json:"disclaimer"`
}

// PredictionList is a page of a user's history, newest first.
type PredictionList struct {
	Predictions []Prediction `json:"predictions"`
	Count       int          `json:"count"`
}

// RuleSets lists the registered rule sets.
type RuleSets struct {
	Active   string            `json:"active"`
	RuleSets []scoring.RuleSet `json:"rulesets"`
}

// Stats reports service counters for GET /stats.
type Stats struct {
	Users          int     `json:"users"`
	Predictions    int     `json:"predictions"`
	ActiveRuleSet  string  `json:"active_ruleset"`
	QueueSize      int     `json:"queue_size"`
	QueueCapacity  int     `json:"queue_capacity"`
	Workers        int     `json:"workers"`
	JobsProcessed  int64   `json:"jobs_processed"`
	JobsFailed     int64   `json:"jobs_failed"`
	DedupeEntries  int64   `json:"dedupe_entries"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	MemoryBytes    uint64  `json:"memory_bytes"`
	GoroutineCount int     `json:"goroutines"`
}
