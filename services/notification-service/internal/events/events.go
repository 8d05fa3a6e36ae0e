package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Routing keys published by the tourism service outbox.
const (
	RKBookingAllocatedTourist = "notify.booking.allocated.tourist"
	RKBookingAllocatedGuide   = "notify.booking.allocated.guide"
	RKEnrollmentPaymentLink   = "notify.enrollment.payment_link"
	RKEnrollmentCredentials   = "notify.enrollment.credentials"
)

// Envelope wraps every notification. ID is the outbox row id and stays the
// same across redeliveries.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Recipient  string          `json:"recipient"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type BookingAllocatedTourist struct {
	BookingID   string `json:"booking_id"`
	TouristName string `json:"tourist_name"`
	GuideName   string `json:"guide_name"`
	GuideEmail  string `json:"guide_email"`
	GuidePhone  string `json:"guide_phone,omitempty"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type BookingAllocatedGuide struct {
	BookingID      string `json:"booking_id"`
	GuideName      string `json:"guide_name"`
	TouristName    string `json:"tourist_name"`
	TouristEmail   string `json:"tourist_email"`
	TouristPhone   string `json:"tourist_phone,omitempty"`
	Destination    string `json:"destination"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PickupLocation string `json:"pickup_location,omitempty"`
	Adults         int    `json:"adults"`
	Children       int    `json:"children,omitempty"`
}

type EnrollmentPaymentLink struct {
	EnrollmentID string `json:"enrollment_id"`
	Name         string `json:"name"`
	Fee          string `json:"fee"`
	Currency     string `json:"currency"`
}

type EnrollmentCredentials struct {
	EnrollmentID string `json:"enrollment_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
