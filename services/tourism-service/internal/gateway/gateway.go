// Package gateway adapts the external payment gateway. Amounts go in as major
// units and come back as the gateway's minor units.
package gateway

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Order statuses as reported by the gateway.
const (
	StatusCreated   = "created"
	StatusAttempted = "attempted"
	StatusPaid      = "paid"
)

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type OrderRequest struct {
	Amount      decimal.Decimal // major units
	Currency    string
	CustomerID  string
	ReferenceID string
	Description string
	Metadata    map[string]string
}

type Order struct {
	ID         string
	Amount     int64 // minor units
	Currency   string
	Status     string
	PaymentURI string
}

// zeroDecimal lists the gateway currencies charged in whole units.
var zeroDecimal = map[string]bool{"JPY": true}

// MinorUnits converts a major-unit amount into the gateway's smallest unit:
// 1000.50 THB is 100050 satang, 1000 JPY stays 1000.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	exp := int32(2)
	if zeroDecimal[strings.ToUpper(currency)] {
		exp = 0
	}
	return amount.Shift(exp).Round(0).IntPart()
}

// encodeMetadata renders metadata as sorted k=v pairs so orders stay traceable
// on gateways without a metadata field.
func encodeMetadata(md map[string]string) string {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+md[k])
	}
	return strings.Join(parts, ";")
}
