package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BookingStatus string

const (
	BookingPaymentPending BookingStatus = "payment-pending"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingAllocated      BookingStatus = "allocated"
)

// AllocatableStatuses are the states a guide may be allocated from.
// payment-pending is included so operators can allocate ahead of reconciliation.
var AllocatableStatuses = []BookingStatus{BookingPaymentPending, BookingConfirmed}

func (s BookingStatus) Allocatable() bool {
	for _, a := range AllocatableStatuses {
		if s == a {
			return true
		}
	}
	return false
}

type TouristInfo struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Nationality string `json:"nationality,omitempty"`
	Adults      int    `json:"adults"`
	Children    int    `json:"children,omitempty"`
}

type TravelDetails struct {
	Destination    string `json:"destination"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PickupLocation string `json:"pickup_location,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type GuidePreferences struct {
	Languages       []string `json:"languages,omitempty"`
	Gender          string   `json:"gender,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
}

type BookingConfiguration struct {
	Package      string          `json:"package"`
	DurationDays int             `json:"duration_days"`
	GroupSize    int             `json:"group_size"`
	Price        decimal.Decimal `json:"price"`
}

// Booking identity fields are written once at creation.
type Booking struct {
	ID               string                                   `gorm:"primaryKey" json:"id"`
	TouristID        string                                   `gorm:"index" json:"tourist_id"`
	TouristInfo      datatypes.JSONType[TouristInfo]          `json:"tourist_info"`
	TravelDetails    datatypes.JSONType[TravelDetails]        `json:"travel_details"`
	GuidePreferences datatypes.JSONType[GuidePreferences]     `json:"guide_preferences"`
	Configuration    datatypes.JSONType[BookingConfiguration] `json:"booking_configuration"`
	// TransactionID is empty until the first payment attempt is linked.
	TransactionID  string        `gorm:"index" json:"transaction_id"`
	AllocatedGuide *string       `gorm:"index" json:"allocated_guide,omitempty"`
	Status         BookingStatus `gorm:"index" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (b *Booking) Price() decimal.Decimal {
	return b.Configuration.Data().Price
}

// Consistent reports whether allocated_guide is set iff the booking is allocated.
func (b *Booking) Consistent() bool {
	return (b.AllocatedGuide != nil) == (b.Status == BookingAllocated)
}
