package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotifyBookingAllocatedTourist NotificationKind = "booking.allocated.tourist"
	NotifyBookingAllocatedGuide   NotificationKind = "booking.allocated.guide"
	NotifyEnrollmentPaymentLink   NotificationKind = "enrollment.payment_link"
	NotifyEnrollmentCredentials   NotificationKind = "enrollment.credentials"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
)

// Notification is an outbox row written in the same DB transaction as the
// state change that triggers it.
type Notification struct {
	ID        string             `gorm:"primaryKey" json:"id"`
	Kind      NotificationKind   `gorm:"index" json:"kind"`
	Recipient string             `json:"recipient"`
	Payload   datatypes.JSON     `json:"payload"`
	Status    NotificationStatus `gorm:"index" json:"status"`
	Attempts  int                `json:"attempts"`
	LastError string             `json:"last_error,omitempty"`
	CreatedAt time.Time          `gorm:"index" json:"created_at"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
}

func NewNotification(kind NotificationKind, recipient string, payload any) (Notification, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Payload:   datatypes.JSON(b),
		Status:    NotificationPending,
	}, nil
}

func NotificationIDs(ns []Notification) []string {
	ids := make([]string, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.ID)
	}
	return ids
}
