// Package notify delivers outbox notifications. Rows are written by the
// repositories together with the state change; this package only sends them
// and records the outcome, so delivery is at-least-once.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type Store interface {
	ByIDs(ctx context.Context, ids []string) ([]domain.Notification, error)
	Pending(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}

type Dispatcher struct {
	store  Store
	sender Sender
	log    *zap.Logger
}

func NewDispatcher(store Store, sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, log: log}
}

// Deliver sends the given rows now. The returned error lists every row that
// could not be sent; those rows stay pending for the relay.
func (d *Dispatcher) Deliver(ctx context.Context, ids ...string) error {
	rows, err := d.store.ByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	if len(rows) != len(ids) {
		return fmt.Errorf("load notifications: found %d of %d", len(rows), len(ids))
	}
	return d.send(ctx, rows)
}

// RelayOnce sends up to batch pending rows and reports how many went out.
func (d *Dispatcher) RelayOnce(ctx context.Context, batch int) (int, error) {
	rows, err := d.store.Pending(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("load pending notifications: %w", err)
	}
	err = d.send(ctx, rows)
	return len(rows) - len(multierr.Errors(err)), err
}

// Relay re-drives pending rows every interval until ctx is done.
func (d *Dispatcher) Relay(ctx context.Context, interval time.Duration, batch int) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := d.RelayOnce(ctx, batch)
			if err != nil {
				d.log.Warn("outbox relay incomplete", zap.Int("sent", n), zap.Error(err))
				continue
			}
			if n > 0 {
				d.log.Info("outbox relayed", zap.Int("sent", n))
			}
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, rows []domain.Notification) error {
	var errs error
	for _, n := range rows {
		if n.Status == domain.NotificationSent {
			continue
		}
		if err := d.sender.Send(ctx, n); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s to %s: %w", n.Kind, n.Recipient, err))
			if mErr := d.store.MarkFailed(ctx, n.ID, err.Error()); mErr != nil {
				d.log.Warn("record notification failure", zap.String("id", n.ID), zap.Error(mErr))
			}
			continue
		}
		if err := d.store.MarkSent(ctx, n.ID); err != nil {
			// sent but still pending: the relay will send it again
			d.log.Warn("mark notification sent", zap.String("id", n.ID), zap.Error(err))
		}
		d.log.Debug("notification sent",
			zap.String("id", n.ID),
			zap.String("kind", string(n.Kind)),
			zap.String("recipient", n.Recipient))
	}
	return errs
}
