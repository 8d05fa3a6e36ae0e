package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Envelope is the message body on the notification exchange. ID is the
// outbox row id; the notification worker acks an id it already delivered.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Recipient  string          `json:"recipient"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func RoutingKey(kind domain.NotificationKind) string {
	return "notify." + string(kind)
}

// MQSender hands notifications to the notification-service over RabbitMQ.
type MQSender struct {
	pub Publisher
}

func NewMQSender(pub Publisher) *MQSender {
	return &MQSender{pub: pub}
}

func (s *MQSender) Send(ctx context.Context, n domain.Notification) error {
	return s.pub.PublishJSON(ctx, RoutingKey(n.Kind), Envelope{
		ID:         n.ID,
		Kind:       string(n.Kind),
		Recipient:  n.Recipient,
		Payload:    json.RawMessage(n.Payload),
		OccurredAt: n.CreatedAt,
	})
}
