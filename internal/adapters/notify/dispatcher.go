package notify

import (
	"context"
	"errors"

	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/pkg/logger"
	"github.com/okian/lifespan/pkg/metrics"
)

// Notification sink names used in metrics.
const (
	KindEmail = "email"
	KindEvent = "event"
)

// Dispatcher fans an event out to the configured sinks. Either sink may be
// nil.
type Dispatcher struct {
	mailer    Mailer
	publisher Publisher
	log       logger.Logger
}

// NewDispatcher returns a dispatcher over mailer and publisher.
func NewDispatcher(mailer Mailer, publisher Publisher, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Named("notify")
	}
	return &Dispatcher{mailer: mailer, publisher: publisher, log: log}
}

// Dispatch emails and publishes ev. Both sinks are attempted; the returned
// error joins their failures.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Event) error {
	var errs []error

	if d.mailer != nil {
		if email, ok := Compose(ev); ok {
			if err := d.mailer.Send(ctx, email); err != nil {
				metrics.RecordNotification(KindEmail, "failed")
				d.log.Error(ctx, "email delivery failed",
					logger.String("event_id", ev.ID),
					logger.String("event_type", string(ev.Type)),
					logger.Error(err),
				)
				errs = append(errs, err)
			} else {
				metrics.RecordNotification(KindEmail, "sent")
			}
		}
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, ev); err != nil {
			metrics.RecordNotification(KindEvent, "failed")
			d.log.Error(ctx, "event publish failed",
				logger.String("event_id", ev.ID),
				logger.String("event_type", string(ev.Type)),
				logger.Error(err),
			)
			errs = append(errs, err)
		} else {
			metrics.RecordNotification(KindEvent, "sent")
		}
	}

	return errors.Join(errs...)
}

// Close releases the publisher.
func (d *Dispatcher) Close() error {
	if d.publisher == nil {
		return nil
	}
	return d.publisher.Close()
}
