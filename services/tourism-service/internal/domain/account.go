package domain

import "time"

type Role string

const (
	RoleTourist Role = "tourist"
	RoleGuide   Role = "guide"
	RoleAdmin   Role = "admin"
)

type AccountStatus string

const (
	AccountUnverified AccountStatus = "unverified"
	AccountVerified   AccountStatus = "verified"
)

// Account emails are stored lower-cased; the unique index is the final guard
// against duplicate guide provisioning.
type Account struct {
	ID           string        `gorm:"primaryKey" json:"id"`
	Email        string        `gorm:"uniqueIndex" json:"email"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	Role         Role          `gorm:"index" json:"role"`
	Status       AccountStatus `json:"status"`
	PasswordHash string        `json:"-"`
	EnrollmentID *string       `gorm:"index" json:"enrollment_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
