// Package notify delivers account and prediction events: email through
// SMTP and an event stream through Kafka.
package notify

import (
	"context"
	"errors"

	model "github.com/okian/lifespan/internal/domain/model"
)

// ErrNoRecipient is returned when an email has no address.
var ErrNoRecipient = errors.New("email has no recipient")

// Email is a plain-text message.
type Email struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// Publisher writes events to a stream.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
	Close() error
}
