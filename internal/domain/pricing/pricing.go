// Package pricing implements the monetary calculations for checkout: GST
// splits per line, order totals, discount capping, and the flat shipping
// charge. All arithmetic is exact decimal; every published amount is rounded
// to 2 decimal places, half up.
package pricing

import "github.com/shopspring/decimal"

// GST is charged as two equal state/central components on the pre-discount
// line base.
var (
	CGSTRate = decimal.New(9, -2)
	SGSTRate = decimal.New(9, -2)

	// FlatShippingCharge applies to every non-empty order.
	FlatShippingCharge = decimal.New(500, 0)
)

// LineAmounts is the priced form of one order line.
type LineAmounts struct {
	Base  decimal.Decimal
	CGST  decimal.Decimal
	SGST  decimal.Decimal
	Total decimal.Decimal
}

// OrderAmounts is the priced form of a whole order.
type OrderAmounts struct {
	Subtotal       decimal.Decimal
	CGSTTotal      decimal.Decimal
	SGSTTotal      decimal.Decimal
	Discount       decimal.Decimal
	ShippingCharge decimal.Decimal
	Total          decimal.Decimal
}

// Line prices one line: base is unit price times quantity, the two tax
// components are each rounded independently, and the line total is their sum.
func Line(unitPrice decimal.Decimal, quantity int) LineAmounts {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	cgst := base.Mul(CGSTRate).Round(2)
	sgst := base.Mul(SGSTRate).Round(2)
	return LineAmounts{
		Base:  base,
		CGST:  cgst,
		SGST:  sgst,
		Total: base.Add(cgst).Add(sgst),
	}
}

// Order sums priced lines into order totals. The discount is capped at the
// subtotal and never reduces the tax base: tax was already computed per line
// on the full price.
func Order(lines []LineAmounts, discount decimal.Decimal) OrderAmounts {
	var a OrderAmounts
	for _, l := range lines {
		a.Subtotal = a.Subtotal.Add(l.Base)
		a.CGSTTotal = a.CGSTTotal.Add(l.CGST)
		a.SGSTTotal = a.SGSTTotal.Add(l.SGST)
	}

	a.Discount = discount.Round(2)
	if a.Discount.GreaterThan(a.Subtotal) {
		a.Discount = a.Subtotal
	}
	if a.Discount.IsNegative() {
		a.Discount = decimal.Zero
	}

	if a.Subtotal.IsPositive() {
		a.ShippingCharge = FlatShippingCharge
	}

	a.Total = a.Subtotal.
		Sub(a.Discount).
		Add(a.CGSTTotal).
		Add(a.SGSTTotal).
		Add(a.ShippingCharge).
		Round(2)
	return a
}

// MinorUnits converts a 2-decimal amount into integer minor currency units
// (paise), as required by the payment gateway.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
