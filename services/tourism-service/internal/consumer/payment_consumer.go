package consumer

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
	"github.com/you/tourism-booking/services/tourism-service/internal/service"
)

const (
	RKPaymentPaid   = "payment.paid"
	RKPaymentFailed = "payment.failed"
)

// PaymentEvent is the body of payment.* messages. Older producers only send
// booking_id.
type PaymentEvent struct {
	ReferenceID   string `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
	TransactionID string `json:"transaction_id,omitempty"`
	BookingID     string `json:"booking_id,omitempty"`
}

type BookingReconciler interface {
	TransactionStatus(ctx context.Context, bookingID string) (*service.BookingPaymentStatus, error)
}

type Deliveries interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

// PaymentConsumer turns payment events into a pull reconciliation. The event
// is only a hint; the gateway status decides.
type PaymentConsumer struct {
	bookings BookingReconciler
	cons     Deliveries
	log      *zap.Logger
}

func NewPaymentConsumer(bookings BookingReconciler, cons Deliveries, log *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{bookings: bookings, cons: cons, log: log}
}

// Run consumes until ctx is done or the channel closes.
func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			switch pc.handle(ctx, d.RoutingKey, d.Body) {
			case ack:
				_ = d.Ack(false)
			case requeue:
				_ = d.Nack(false, true)
			case drop:
				_ = d.Nack(false, false)
			}
		}
	}
}

func (pc *PaymentConsumer) handle(ctx context.Context, key string, body []byte) outcome {
	if key != RKPaymentPaid && key != RKPaymentFailed {
		return ack
	}
	var evt PaymentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		pc.log.Warn("payment event unreadable", zap.String("key", key), zap.Error(err))
		return drop
	}
	if evt.ReferenceID == "" && evt.BookingID != "" {
		evt.ReferenceID, evt.ReferenceType = evt.BookingID, string(domain.ReferenceBooking)
	}
	if evt.ReferenceID == "" {
		pc.log.Warn("payment event without reference", zap.String("key", key))
		return drop
	}

	switch domain.ReferenceType(evt.ReferenceType) {
	case domain.ReferenceBooking:
		st, err := pc.bookings.TransactionStatus(ctx, evt.ReferenceID)
		if errors.Is(err, domain.ErrNotFound) {
			pc.log.Warn("payment event for unknown booking", zap.String("booking_id", evt.ReferenceID))
			return ack
		}
		if err != nil {
			pc.log.Error("booking reconciliation failed", zap.String("booking_id", evt.ReferenceID), zap.Error(err))
			return requeue
		}
		pc.log.Info("booking reconciled",
			zap.String("key", key),
			zap.String("booking_id", st.BookingID),
			zap.String("order_status", st.OrderStatus),
			zap.String("booking_status", string(st.BookingStatus)))
		return ack
	case domain.ReferenceEnrollment:
		// enrollments are confirmed by an explicit ConfirmPayment call
		pc.log.Info("enrollment payment event",
			zap.String("key", key),
			zap.String("enrollment_id", evt.ReferenceID),
			zap.String("transaction_id", evt.TransactionID))
		return ack
	default:
		pc.log.Warn("payment event with unknown reference type", zap.String("reference_type", evt.ReferenceType))
		return drop
	}
}
