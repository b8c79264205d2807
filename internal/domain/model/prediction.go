package model

import (
	"time"

	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

// Prediction is a stored scoring result together with the inputs that
// produced it.
type Prediction struct {
	ID          string
	UserID      string
	RuleSet     string
	Profile     scoring.HealthProfile
	Result      scoring.PredictionResult
	Adjustments []scoring.Adjustment
	CreatedAt   time.Time
}

// Clone returns a deep copy.
func (p *Prediction) Clone() *Prediction {
	if p == nil {
		return nil
	}
	c := *p
	c.Adjustments = append([]scoring.Adjustment(nil), p.Adjustments...)
	return &c
}

// Session is an authenticated login.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
