// Package order implements the checkout transaction core: building an order
// from cart lines, pricing it, allocating its invoice number, and registering
// it with the payment gateway, all inside one atomic unit of work.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. The only permitted transitions are
// PENDING -> CONFIRMED and PENDING -> CANCELLED; both targets are terminal.
// A PENDING order that never transitions is simply abandoned; there is no
// automatic expiry.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Shipping is the address snapshot copied onto the order at creation time.
// It never changes afterwards, even if the customer edits their profile.
type Shipping struct {
	Name    string
	Phone   string
	Address string
	Pincode string
}

// Line is one order line with the unit price captured at purchase time. The
// price is immutable history and is never re-read from the catalog.
type Line struct {
	ItemID    string
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
	CGST      decimal.Decimal
	SGST      decimal.Decimal
	Total     decimal.Decimal
}

// Order is a customer order. OrderRef is the opaque external identifier;
// InvoiceSeq/InvoiceNumber form the gapless-per-success sequential identity.
type Order struct {
	ID            string
	OrderRef      string
	InvoiceSeq    int64
	InvoiceNumber string

	CustomerID string
	// CustomerName and CustomerEmail are populated on reads that join the
	// customer record; they are not order columns.
	CustomerName  string
	CustomerEmail string

	Shipping Shipping
	Lines    []Line

	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string

	Subtotal       decimal.Decimal
	CGSTTotal      decimal.Decimal
	SGSTTotal      decimal.Decimal
	Discount       decimal.Decimal
	ShippingCharge decimal.Decimal
	Total          decimal.Decimal
	CouponCode     string

	Status    Status
	CreatedAt time.Time
}

// NewOrderRef generates the external order identifier: "ORD-" plus the first
// ten hex digits of a fresh UUID, uppercased.
func NewOrderRef() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ORD-" + strings.ToUpper(raw[:10])
}

// Store is the transactional persistence contract for orders.
type Store interface {
	// Create persists the order and its lines atomically. Inside the same
	// transaction it allocates the next invoice sequence under an exclusive
	// lock on the latest committed order, sets o.InvoiceSeq and
	// o.InvoiceNumber, and then calls attach. attach typically performs the
	// payment-gateway registration and sets o.GatewayOrderID, which Create
	// persists before committing. Any error from attach aborts the whole
	// transaction; the allocated number is consumed, never reused.
	Create(ctx context.Context, o *Order, attach func(ctx context.Context, o *Order) error) error

	// ListConfirmedByCustomer returns the customer's CONFIRMED orders with
	// their lines, newest first.
	ListConfirmedByCustomer(ctx context.Context, customerID string) ([]Order, error)
}
