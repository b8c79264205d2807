package model

import "time"

// EventType names a notification.
type EventType string

const (
	EventUserRegistered        EventType = "user.registered"
	EventPredictionCreated     EventType = "prediction.created"
	EventPasswordResetRequest  EventType = "password.reset_requested"
	EventPasswordResetComplete EventType = "password.reset_completed"
)

// Event is a notification job: it is emailed to the user and published to
// the event stream when those sinks are configured.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	UserID     string            `json:"user_id,omitempty"`
	Email      string            `json:"email,omitempty"`
	Name       string            `json:"name,omitempty"`
	Prediction *PredictionEvent  `json:"prediction,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PredictionEvent is the part of a prediction shared with subscribers.
type PredictionEvent struct {
	ID                      string  `json:"id"`
	RuleSet                 string  `json:"ruleset"`
	PredictedLifeExpectancy float64 `json:"predicted_life_expectancy"`
	YearsLeft               float64 `json:"years_left"`
	DaysLeft                int     `json:"days_left"`
}

// Secret attributes are delivered by email only and never published.
const AttrResetCode = "reset_code"

// Public returns a copy of e without secret attributes.
func (e Event) Public() Event {
	if _, ok := e.Attributes[AttrResetCode]; !ok {
		return e
	}
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		if k != AttrResetCode {
			attrs[k] = v
		}
	}
	e.Attributes = attrs
	return e
}
