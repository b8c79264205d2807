package notify

import (
	"fmt"
	"strings"

	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

// Compose builds the email for ev. It reports false for events that carry
// no recipient or have no email form.
func Compose(ev model.Event) (Email, bool) {
	if ev.Email == "" {
		return Email{}, false
	}
	e := Email{To: ev.Email, Name: ev.Name}
	greeting := "Hello"
	if ev.Name != "" {
		greeting = "Hello " + ev.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s,\n\n", greeting)

	switch ev.Type {
	case model.EventUserRegistered:
		e.Subject = "Welcome to Lifespan"
		b.WriteString("Your account has been created. You can now sign in and record predictions.\n")
	case model.EventPredictionCreated:
		if ev.Prediction == nil {
			return Email{}, false
		}
		p := ev.Prediction
		e.Subject = "Your life expectancy prediction"
		fmt.Fprintf(&b, "Predicted life expectancy: %.1f years\n", p.PredictedLifeExpectancy)
		fmt.Fprintf(&b, "Estimated years left: %.1f\n", p.YearsLeft)
		fmt.Fprintf(&b, "Estimated days left: %d\n", p.DaysLeft)
		fmt.Fprintf(&b, "Rule set: %s\n\n", p.RuleSet)
		b.WriteString(scoring.Disclaimer + "\n")
	case model.EventPasswordResetRequest:
		code := ev.Attributes[model.AttrResetCode]
		if code == "" {
			return Email{}, false
		}
		e.Subject = "Password Reset Code"
		fmt.Fprintf(&b, "Your reset code is %s\n", code)
		if ttl := ev.Attributes["expires_in"]; ttl != "" {
			fmt.Fprintf(&b, "It expires in %s.\n", ttl)
		}
		b.WriteString("If you did not ask to reset your password you can ignore this email.\n")
	case model.EventPasswordResetComplete:
		e.Subject = "Your password was changed"
		b.WriteString("Your password was reset and all sessions were signed out.\n")
	default:
		return Email{}, false
	}
	e.Body = b.String()
	return e, true
}
