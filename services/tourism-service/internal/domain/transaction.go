package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReferenceType string

const (
	ReferenceBooking    ReferenceType = "booking"
	ReferenceEnrollment ReferenceType = "enrollment"
)

// Transaction is one payment attempt. Status caches the gateway order status
// and only changes through reconciliation.
type Transaction struct {
	ID               string          `gorm:"primaryKey" json:"transaction_id"`
	ReferenceID      string          `gorm:"index:idx_tx_reference,priority:1" json:"reference_id"`
	ReferenceType    ReferenceType   `gorm:"index:idx_tx_reference,priority:2" json:"reference_type"`
	RemoteCustomerID string          `json:"remote_customer_id"`
	RemoteOrderID    string          `gorm:"uniqueIndex" json:"remote_order_id"`
	Status           string          `gorm:"index" json:"status"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Currency         string          `json:"currency"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
