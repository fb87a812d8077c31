package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLine(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		quantity  int
		base      string
		cgst      string
		sgst      string
		total     string
	}{
		{
			name:      "round amounts",
			unitPrice: "500.00", quantity: 2,
			base: "1000.00", cgst: "90.00", sgst: "90.00", total: "1180.00",
		},
		{
			name:      "tax rounds half up",
			unitPrice: "100.50", quantity: 1,
			// 100.50 * 0.09 = 9.045 -> 9.05 on each component.
			base: "100.50", cgst: "9.05", sgst: "9.05", total: "118.60",
		},
		{
			name:      "tax rounds down below midpoint",
			unitPrice: "99.99", quantity: 1,
			// 99.99 * 0.09 = 8.9991 -> 9.00.
			base: "99.99", cgst: "9.00", sgst: "9.00", total: "117.99",
		},
		{
			name:      "single paisa item",
			unitPrice: "0.01", quantity: 1,
			// 0.01 * 0.09 = 0.0009 -> 0.00.
			base: "0.01", cgst: "0.00", sgst: "0.00", total: "0.01",
		},
		{
			name:      "quantity scales base before tax",
			unitPrice: "33.33", quantity: 3,
			// base 99.99, not 3 * round(33.33 * 1.18).
			base: "99.99", cgst: "9.00", sgst: "9.00", total: "117.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Line(dec(tt.unitPrice), tt.quantity)
			assert.Equal(t, tt.base, got.Base.StringFixed(2))
			assert.Equal(t, tt.cgst, got.CGST.StringFixed(2))
			assert.Equal(t, tt.sgst, got.SGST.StringFixed(2))
			assert.Equal(t, tt.total, got.Total.StringFixed(2))
		})
	}
}

func TestOrder_DiscountDoesNotReduceTaxBase(t *testing.T) {
	lines := []LineAmounts{Line(dec("1000.00"), 1)}

	got := Order(lines, dec("100.00"))

	// Tax stays 9% of the full 1000.00 even though 100.00 was discounted.
	assert.Equal(t, "1000.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "90.00", got.CGSTTotal.StringFixed(2))
	assert.Equal(t, "90.00", got.SGSTTotal.StringFixed(2))
	assert.Equal(t, "100.00", got.Discount.StringFixed(2))
	assert.Equal(t, "500.00", got.ShippingCharge.StringFixed(2))
	assert.Equal(t, "1580.00", got.Total.StringFixed(2))
}

func TestOrder_TotalIdentity(t *testing.T) {
	lines := []LineAmounts{
		Line(dec("123.45"), 2),
		Line(dec("99.99"), 3),
		Line(dec("0.01"), 7),
	}

	got := Order(lines, dec("50.00"))

	want := got.Subtotal.
		Sub(got.Discount).
		Add(got.CGSTTotal).
		Add(got.SGSTTotal).
		Add(got.ShippingCharge)
	assert.True(t, got.Total.Equal(want),
		"total %s != identity %s", got.Total, want)
}

func TestOrder_DiscountCappedAtSubtotal(t *testing.T) {
	lines := []LineAmounts{Line(dec("100.00"), 1)}

	got := Order(lines, dec("250.00"))

	assert.Equal(t, "100.00", got.Discount.StringFixed(2))
	// 100 - 100 + 9 + 9 + 500.
	assert.Equal(t, "518.00", got.Total.StringFixed(2))
}

func TestOrder_NegativeDiscountIgnored(t *testing.T) {
	lines := []LineAmounts{Line(dec("100.00"), 1)}

	got := Order(lines, dec("-10.00"))

	assert.Equal(t, "0.00", got.Discount.StringFixed(2))
	assert.Equal(t, "618.00", got.Total.StringFixed(2))
}

func TestOrder_EmptyHasNoShipping(t *testing.T) {
	got := Order(nil, decimal.Zero)

	assert.Equal(t, "0.00", got.ShippingCharge.StringFixed(2))
	assert.Equal(t, "0.00", got.Total.StringFixed(2))
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"1680.00", 168000},
		{"0.01", 1},
		{"0.00", 0},
		{"99999999.99", 9999999999},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MinorUnits(dec(tt.amount)), "amount %s", tt.amount)
	}
}
