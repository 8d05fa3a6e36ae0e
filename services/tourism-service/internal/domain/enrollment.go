package domain

import (
	"time"

	"gorm.io/datatypes"
)

type EnrollmentStatus string

const (
	EnrollmentUnverified     EnrollmentStatus = "unverified"
	EnrollmentPaymentPending EnrollmentStatus = "payment-pending"
	EnrollmentVerified       EnrollmentStatus = "verified"
)

func (s EnrollmentStatus) rank() int {
	switch s {
	case EnrollmentUnverified:
		return 1
	case EnrollmentPaymentPending:
		return 2
	case EnrollmentVerified:
		return 3
	}
	return 0
}

func (s EnrollmentStatus) Valid() bool { return s.rank() > 0 }

// Before reports whether moving from s to next is a forward transition.
func (s EnrollmentStatus) Before(next EnrollmentStatus) bool {
	return s.Valid() && next.Valid() && s.rank() < next.rank()
}

type GuideProfile struct {
	Languages       []string `json:"languages,omitempty"`
	Regions         []string `json:"regions,omitempty"`
	ExperienceYears int      `json:"experience_years"`
	Bio             string   `json:"bio,omitempty"`
}

type Enrollment struct {
	ID        string                           `gorm:"primaryKey" json:"id"`
	Name      string                           `json:"name"`
	Email     string                           `gorm:"index" json:"email"`
	Phone     string                           `json:"phone"`
	Profile   datatypes.JSONType[GuideProfile] `json:"profile"`
	Status    EnrollmentStatus                 `gorm:"index" json:"status"`
	CreatedAt time.Time                        `json:"created_at"`
	UpdatedAt time.Time                        `json:"updated_at"`
}
