// Package coupon resolves promo codes against an order subtotal. Resolution
// is best-effort by design: an invalid, inactive, expired, or below-minimum
// coupon yields a zero discount instead of failing the order.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountFlat subtracts a fixed amount, capped at the subtotal.
	DiscountFlat DiscountType = "flat"
	// DiscountPercent subtracts a percentage of the subtotal.
	DiscountPercent DiscountType = "percent"
)

// ErrNotFound is returned by repositories when no active coupon matches a code.
var ErrNotFound = errors.New("coupon not found")

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	Code          string
	DiscountType  DiscountType
	Value         decimal.Decimal
	MinOrderValue *decimal.Decimal
	ExpiresOn     *time.Time
	Active        bool
}

// Repository provides lookup of coupon rules by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

var hundred = decimal.NewFromInt(100)

// Amount computes the discount the rule grants on the given subtotal,
// rounded to 2 decimal places and capped at the subtotal.
func (r *Rule) Amount(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch r.DiscountType {
	case DiscountFlat:
		amount = r.Value
	case DiscountPercent:
		amount = subtotal.Mul(r.Value).Div(hundred)
	default:
		return decimal.Zero
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2)
}

// eligible reports whether the rule may be applied to the given subtotal at
// the given instant.
func (r *Rule) eligible(subtotal decimal.Decimal, now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ExpiresOn != nil && r.ExpiresOn.Before(truncateToDate(now)) {
		return false
	}
	if r.MinOrderValue != nil && subtotal.LessThan(*r.MinOrderValue) {
		return false
	}
	return true
}

// truncateToDate drops the time-of-day component; coupon expiry has day
// granularity, so a coupon expiring today is still usable today.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Resolver prices a coupon code against an order subtotal.
type Resolver struct {
	repo Repository
	now  func() time.Time
}

// NewResolver creates a Resolver backed by the given Repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo, now: time.Now}
}

// Resolve returns the discount for the code, or zero when the code is empty,
// unknown, inactive, expired, or the subtotal is below the coupon's minimum.
// Only infrastructure failures surface as errors; a rejected coupon never
// blocks order creation.
func (v *Resolver) Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if code == "" {
		return decimal.Zero, nil
	}

	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.Wrap(err, "lookup coupon")
	}

	if !rule.eligible(subtotal, v.now()) {
		return decimal.Zero, nil
	}

	return rule.Amount(subtotal), nil
}
