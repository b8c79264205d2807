package notify_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/okian/lifespan/internal/adapters/notify"
	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func predictionEvent() model.Event {
	return model.Event{
		ID:         "e1",
		Type:       model.EventPredictionCreated,
		OccurredAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UserID:     "u1",
		Email:      "ann@example.com",
		Name:       "Ann",
		Prediction: &model.PredictionEvent{
			ID: "p1", RuleSet: "standard",
			PredictedLifeExpectancy: 82.5, YearsLeft: 42.5, DaysLeft: 15512,
		},
	}
}

func TestCompose(t *testing.T) {
	Convey("Given notification events", t, func() {
		Convey("When a prediction was created", func() {
			e, ok := notify.Compose(predictionEvent())

			Convey("Then the summary email carries the result and disclaimer", func() {
				So(ok, ShouldBeTrue)
				So(e.To, ShouldEqual, "ann@example.com")
				So(e.Subject, ShouldEqual, "Your life expectancy prediction")
				So(e.Body, ShouldContainSubstring, "Hello Ann")
				So(e.Body, ShouldContainSubstring, "82.5 years")
				So(e.Body, ShouldContainSubstring, "15512")
				So(e.Body, ShouldContainSubstring, "not medical advice")
			})
		})

		Convey("When a reset was requested", func() {
			ev := model.Event{
				Type:       model.EventPasswordResetRequest,
				Email:      "ann@example.com",
				Attributes: map[string]string{model.AttrResetCode: "012345", "expires_in": "15m0s"},
			}
			e, ok := notify.Compose(ev)

			Convey("Then the email contains the code", func() {
				So(ok, ShouldBeTrue)
				So(e.Subject, ShouldEqual, "Password Reset Code")
				So(e.Body, ShouldContainSubstring, "Your reset code is 012345")
				So(e.Body, ShouldContainSubstring, "15m0s")
			})
		})

		Convey("When a reset request has no code", func() {
			_, ok := notify.Compose(model.Event{Type: model.EventPasswordResetRequest, Email: "a@example.com"})

			Convey("Then no email is composed", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the event has no address", func() {
			ev := predictionEvent()
			ev.Email = ""
			_, ok := notify.Compose(ev)

			Convey("Then no email is composed", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the event type is unknown", func() {
			_, ok := notify.Compose(model.Event{Type: "other", Email: "a@example.com"})

			Convey("Then no email is composed", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Then registration and reset completion have emails", func() {
			e, ok := notify.Compose(model.Event{Type: model.EventUserRegistered, Email: "a@example.com"})
			So(ok, ShouldBeTrue)
			So(e.Subject, ShouldEqual, "Welcome to Lifespan")
			So(e.Body, ShouldStartWith, "Hello,")

			e, ok = notify.Compose(model.Event{Type: model.EventPasswordResetComplete, Email: "a@example.com"})
			So(ok, ShouldBeTrue)
			So(e.Subject, ShouldEqual, "Your password was changed")
		})
	})
}

func TestSMTPMailer(t *testing.T) {
	Convey("Given an SMTP mailer over a recording sender", t, func() {
		var (
			from string
			to   []string
			raw  bytes.Buffer
		)
		sender := gomail.SendFunc(func(f string, rcpt []string, msg io.WriterTo) error {
			from, to = f, rcpt
			_, err := msg.WriteTo(&raw)
			return err
		})
		m := notify.NewSMTPMailerWithSender(sender, "noreply@lifespan.test")

		Convey("When sending an email", func() {
			err := m.Send(context.Background(), notify.Email{
				To: "ann@example.com", Name: "Ann", Subject: "Hi", Body: "Body text",
			})

			Convey("Then the envelope and message are built", func() {
				So(err, ShouldBeNil)
				So(from, ShouldEqual, "noreply@lifespan.test")
				So(to, ShouldResemble, []string{"ann@example.com"})
				msg := raw.String()
				So(msg, ShouldContainSubstring, "Subject: Hi")
				So(msg, ShouldContainSubstring, "Body text")
				So(msg, ShouldContainSubstring, "Ann")
			})
		})

		Convey("When the email has no recipient", func() {
			err := m.Send(context.Background(), notify.Email{Subject: "Hi"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, notify.ErrNoRecipient), ShouldBeTrue)
			})
		})

		Convey("When the sender fails", func() {
			failing := notify.NewSMTPMailerWithSender(gomail.SendFunc(func(string, []string, io.WriterTo) error {
				return errors.New("relay down")
			}), "noreply@lifespan.test")
			err := failing.Send(context.Background(), notify.Email{To: "a@example.com"})

			Convey("Then the error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "relay down")
			})
		})

		Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := m.Send(ctx, notify.Email{To: "a@example.com"})

			Convey("Then nothing is sent", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(raw.Len(), ShouldEqual, 0)
			})
		})
	})
}

type recordingMailer struct {
	sent []notify.Email
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, e notify.Email) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, e)
	return nil
}

type recordingPublisher struct {
	events []model.Event
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(ctx context.Context, ev model.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestDispatcher(t *testing.T) {
	Convey("Given a dispatcher with both sinks", t, func() {
		ctx := context.Background()
		mailer := &recordingMailer{}
		pub := &recordingPublisher{}
		d := notify.NewDispatcher(mailer, pub, logger.Get())

		Convey("When dispatching a prediction event", func() {
			err := d.Dispatch(ctx, predictionEvent())

			Convey("Then it is emailed and published", func() {
				So(err, ShouldBeNil)
				So(len(mailer.sent), ShouldEqual, 1)
				So(len(pub.events), ShouldEqual, 1)
				So(pub.events[0].ID, ShouldEqual, "e1")
			})
		})

		Convey("When the mailer fails", func() {
			mailer.err = errors.New("smtp down")
			err := d.Dispatch(ctx, predictionEvent())

			Convey("Then the event is still published and the error surfaces", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "smtp down")
				So(len(pub.events), ShouldEqual, 1)
			})
		})

		Convey("When both sinks fail", func() {
			mailer.err = errors.New("smtp down")
			pub.err = errors.New("kafka down")
			err := d.Dispatch(ctx, predictionEvent())

			Convey("Then both failures are reported", func() {
				So(err.Error(), ShouldContainSubstring, "smtp down")
				So(err.Error(), ShouldContainSubstring, "kafka down")
			})
		})

		Convey("When closing", func() {
			So(d.Close(), ShouldBeNil)

			Convey("Then the publisher is closed", func() {
				So(pub.closed, ShouldBeTrue)
			})
		})
	})

	Convey("Given a dispatcher without sinks", t, func() {
		d := notify.NewDispatcher(nil, nil, nil)

		Convey("Then dispatching is a no-op", func() {
			So(d.Dispatch(context.Background(), predictionEvent()), ShouldBeNil)
			So(d.Close(), ShouldBeNil)
		})
	})
}

func TestLogMailer(t *testing.T) {
	Convey("Given a log mailer", t, func() {
		m := notify.LogMailer{Log: logger.Get()}

		Convey("Then sending succeeds without a relay", func() {
			So(m.Send(context.Background(), notify.Email{To: "a@example.com", Subject: "x"}), ShouldBeNil)
			So(errors.Is(m.Send(context.Background(), notify.Email{}), notify.ErrNoRecipient), ShouldBeTrue)
		})
	})
}
