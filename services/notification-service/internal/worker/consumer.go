package worker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/services/notification-service/internal/events"
	"github.com/you/tourism-booking/services/notification-service/internal/notifier"
)

// errPoison marks messages that can never be delivered; they go to the DLQ.
var errPoison = errors.New("undeliverable message")

type Deliveries interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Seen records delivered envelope ids. Claim returns false for an id that was
// already delivered.
type Seen interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type Consumer struct {
	cons     Deliveries
	notifier notifier.Notifier
	seen     Seen
	log      *zap.Logger
}

func NewConsumer(cons Deliveries, n notifier.Notifier, seen Seen, log *zap.Logger) *Consumer {
	return &Consumer{cons: cons, notifier: n, seen: seen, log: log}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.cons.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			err := c.handle(ctx, d.RoutingKey, d.Body)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errPoison):
				c.log.Warn("dead-lettering message", zap.String("key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false)
			default:
				c.log.Error("delivery failed, requeue", zap.String("key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, true)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, key string, body []byte) error {
	env, err := events.Decode[events.Envelope](body)
	if err != nil {
		return fmt.Errorf("%w: %w", errPoison, err)
	}
	if env.Recipient == "" {
		return fmt.Errorf("%w: %s without recipient", errPoison, key)
	}

	subject, text, err := render(key, env.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", errPoison, err)
	}
	if subject == "" {
		c.log.Info("skip unknown key", zap.String("key", key), zap.String("id", env.ID))
		return nil
	}
	if env.ID != "" {
		first, err := c.seen.Claim(ctx, env.ID)
		switch {
		case err != nil:
			// claim store down: deliver anyway
			c.log.Warn("dedup claim failed", zap.String("id", env.ID), zap.Error(err))
		case !first:
			c.log.Info("skip duplicate", zap.String("id", env.ID), zap.String("key", key))
			return nil
		}
	}
	if err := c.notifier.Notify(ctx, env.Recipient, subject, text); err != nil {
		if env.ID != "" {
			if rerr := c.seen.Release(ctx, env.ID); rerr != nil {
				c.log.Warn("dedup release failed", zap.String("id", env.ID), zap.Error(rerr))
			}
		}
		return err
	}
	c.log.Debug("notification delivered", zap.String("id", env.ID), zap.String("key", key))
	return nil
}

// render returns an empty subject for keys it does not know.
func render(key string, payload []byte) (subject, body string, err error) {
	switch key {
	case events.RKBookingAllocatedTourist:
		ev, err := events.Decode[events.BookingAllocatedTourist](payload)
		if err != nil {
			return "", "", err
		}
		return "Your guide is confirmed",
			fmt.Sprintf("Hi %s, %s will guide your trip to %s (%s to %s). Contact: %s %s.",
				ev.TouristName, ev.GuideName, ev.Destination, ev.StartDate, ev.EndDate, ev.GuideEmail, ev.GuidePhone), nil

	case events.RKBookingAllocatedGuide:
		ev, err := events.Decode[events.BookingAllocatedGuide](payload)
		if err != nil {
			return "", "", err
		}
		return "New tour assigned",
			fmt.Sprintf("Hi %s, you are guiding %s (%d adults, %d children) to %s from %s to %s. Pickup: %s. Contact: %s %s.",
				ev.GuideName, ev.TouristName, ev.Adults, ev.Children, ev.Destination, ev.StartDate, ev.EndDate,
				ev.PickupLocation, ev.TouristEmail, ev.TouristPhone), nil

	case events.RKEnrollmentPaymentLink:
		ev, err := events.Decode[events.EnrollmentPaymentLink](payload)
		if err != nil {
			return "", "", err
		}
		return "Complete your guide enrollment",
			fmt.Sprintf("Hi %s, your application %s was reviewed. Pay the %s %s enrollment fee to finish.",
				ev.Name, ev.EnrollmentID, ev.Fee, ev.Currency), nil

	case events.RKEnrollmentCredentials:
		ev, err := events.Decode[events.EnrollmentCredentials](payload)
		if err != nil {
			return "", "", err
		}
		return "Your guide account",
			fmt.Sprintf("Hi %s, your guide account is ready. Sign in as %s with password %s.",
				ev.Name, ev.Email, ev.Password), nil
	}
	return "", "", nil
}
