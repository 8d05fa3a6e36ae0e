package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"1000":    100000,
		"1000.5":  100050,
		"0.01":    1,
		"19.999":  2000,
		"2500.00": 250000,
	}
	for in, want := range cases {
		assert.Equal(t, want, MinorUnits(decimal.RequireFromString(in), "THB"), in)
	}
}

func TestMinorUnits_ZeroDecimalCurrency(t *testing.T) {
	assert.EqualValues(t, 1000, MinorUnits(decimal.NewFromInt(1000), "JPY"))
	assert.EqualValues(t, 1000, MinorUnits(decimal.NewFromInt(1000), "jpy"))
	assert.EqualValues(t, 1001, MinorUnits(decimal.RequireFromString("1000.6"), "JPY"))
	assert.EqualValues(t, 100000, MinorUnits(decimal.NewFromInt(1000), "USD"))
}

func TestEncodeMetadata(t *testing.T) {
	got := encodeMetadata(map[string]string{
		"reference_type": "booking",
		"reference_id":   "b-1",
		"destination":    "Hampi",
	})
	assert.Equal(t, "destination=Hampi;reference_id=b-1;reference_type=booking", got)
	assert.Equal(t, "", encodeMetadata(nil))
}

func TestCustomerKey(t *testing.T) {
	assert.Equal(t, "gateway:customer:asha@example.com", customerKey("Asha@Example.com"))
}
