package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attarco/checkout/internal/domain/catalog"
	"github.com/attarco/checkout/internal/domain/coupon"
	"github.com/attarco/checkout/internal/domain/pricing"
)

// Validation sentinels for checkout input.
var (
	ErrEmptyLines      = errors.New("at least one line item is required")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrMissingShipping = errors.New("shipping name, phone, address and pincode are required")
)

// Gateway registers a checkout intent with the external payment provider.
type Gateway interface {
	// CreateRemoteOrder creates the provider-side order object and returns
	// its opaque identifier. amountMinorUnits is the order total in minor
	// currency units (paise).
	CreateRemoteOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error)
}

// LineRequest is one requested cart line.
type LineRequest struct {
	ItemID   string
	Quantity int
}

// CheckoutRequest is the input to Service.Checkout.
type CheckoutRequest struct {
	CustomerID string
	Shipping   Shipping
	Lines      []LineRequest
	CouponCode string
}

// Service orchestrates order creation.
type Service struct {
	catalog  catalog.Repository
	coupons  *coupon.Resolver
	store    Store
	gateway  Gateway
	currency string
}

// NewService creates the checkout service with its collaborators.
func NewService(cat catalog.Repository, coupons *coupon.Resolver, store Store, gw Gateway) *Service {
	return &Service{
		catalog:  cat,
		coupons:  coupons,
		store:    store,
		gateway:  gw,
		currency: "INR",
	}
}

// Checkout builds, prices, and persists a PENDING order from the request.
//
// Catalog lookups, coupon resolution, and all tax math happen before the
// store transaction opens; only invoice allocation, row persistence, and the
// gateway registration run inside it. On any failure nothing is committed.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Lines))
	for i, l := range req.Lines {
		ids[i] = l.ItemID
	}
	items, err := s.catalog.GetActiveItems(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch catalog items")
	}

	// Every requested item must exist and be active; a single bad line
	// aborts checkout with no partial order.
	lines := make([]Line, len(req.Lines))
	amounts := make([]pricing.LineAmounts, len(req.Lines))
	for i, l := range req.Lines {
		item, ok := items[l.ItemID]
		if !ok {
			return nil, &catalog.ItemNotFoundError{ItemID: l.ItemID}
		}

		la := pricing.Line(item.UnitPrice, l.Quantity)
		amounts[i] = la
		lines[i] = Line{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  l.Quantity,
			UnitPrice: item.UnitPrice,
			CGST:      la.CGST,
			SGST:      la.SGST,
			Total:     la.Total,
		}
	}

	subtotal := pricing.Order(amounts, decimal.Zero).Subtotal
	discount, err := s.coupons.Resolve(ctx, req.CouponCode, subtotal)
	if err != nil {
		return nil, errors.Wrap(err, "resolve coupon")
	}

	totals := pricing.Order(amounts, discount)

	couponCode := req.CouponCode
	if discount.IsZero() {
		// A rejected coupon leaves no trace on the order.
		couponCode = ""
	}

	o := &Order{
		ID:             uuid.New().String(),
		OrderRef:       NewOrderRef(),
		CustomerID:     req.CustomerID,
		Shipping:       req.Shipping,
		Lines:          lines,
		Subtotal:       totals.Subtotal,
		CGSTTotal:      totals.CGSTTotal,
		SGSTTotal:      totals.SGSTTotal,
		Discount:       totals.Discount,
		ShippingCharge: totals.ShippingCharge,
		Total:          totals.Total,
		CouponCode:     couponCode,
		Status:         StatusPending,
	}

	err = s.store.Create(ctx, o, func(ctx context.Context, o *Order) error {
		gatewayOrderID, err := s.gateway.CreateRemoteOrder(
			ctx, pricing.MinorUnits(o.Total), s.currency, o.OrderRef,
		)
		if err != nil {
			return errors.Wrap(err, "create gateway order")
		}
		o.GatewayOrderID = gatewayOrderID
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create order %s", o.OrderRef)
	}

	return o, nil
}

// MyOrders returns the customer's confirmed orders, newest first.
func (s *Service) MyOrders(ctx context.Context, customerID string) ([]Order, error) {
	orders, err := s.store.ListConfirmedByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func validate(req CheckoutRequest) error {
	sh := req.Shipping
	if sh.Name == "" || sh.Phone == "" || sh.Address == "" || sh.Pincode == "" {
		return ErrMissingShipping
	}
	if len(req.Lines) == 0 {
		return ErrEmptyLines
	}
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
