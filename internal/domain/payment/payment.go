// Package payment implements the payment confirmation state machine: it
// verifies gateway callback authenticity and transitions an order from
// PENDING to CONFIRMED exactly once, tolerating duplicate callbacks.
package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/attarco/checkout/internal/domain/order"
)

var (
	// ErrOrderNotFound covers both an unknown gateway order id and an order
	// owned by a different customer; the two are indistinguishable to the
	// caller so cross-account probing learns nothing.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidSignature is returned on signature mismatch.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrOrderCancelled is returned when confirming a terminally cancelled order.
	ErrOrderCancelled = errors.New("order is cancelled")
)

// Store is the persistence contract the state machine needs.
type Store interface {
	// FindByGatewayOrder looks up an order by its gateway order id, scoped to
	// the owning customer. Returns ErrOrderNotFound when absent or owned by
	// someone else.
	FindByGatewayOrder(ctx context.Context, gatewayOrderID, customerID string) (*order.Order, error)

	// ConfirmPayment atomically records the payment identifiers and moves the
	// order to CONFIRMED, guarded on the current status still being PENDING.
	// It reports whether this call performed the transition; false means a
	// concurrent or earlier confirmation already did.
	ConfirmPayment(ctx context.Context, orderID, gatewayPaymentID, gatewaySignature string) (bool, error)
}

// Dispatcher receives confirmed orders for notification fan-out. OrderConfirmed
// does at most bounded synchronous work and its failures must never surface
// to the payer.
type Dispatcher interface {
	OrderConfirmed(o *order.Order)
}

// VerifyRequest carries the gateway callback fields plus the authenticated
// customer asserting them.
type VerifyRequest struct {
	CustomerID       string
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
}

// Service verifies payments against a shared gateway secret.
type Service struct {
	store      Store
	dispatcher Dispatcher
	secret     []byte
}

// NewService creates the verification service. secret is the gateway key
// secret shared with the payment provider.
func NewService(store Store, dispatcher Dispatcher, secret []byte) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		secret:     secret,
	}
}

// Verify authenticates a payment callback and confirms the order.
//
// The call is idempotent: an already-confirmed order reports prior success
// without re-running side effects. The fan-out dispatch is the final action
// and is fire-and-forget; it can never fail or roll back the confirmation.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*order.Order, error) {
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.GatewaySignature == "" {
		return nil, ErrInvalidSignature
	}

	o, err := s.store.FindByGatewayOrder(ctx, req.GatewayOrderID, req.CustomerID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}

	if !VerifySignature(s.secret, req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature) {
		return nil, ErrInvalidSignature
	}

	switch o.Status {
	case order.StatusConfirmed:
		// Duplicate gateway callback or client retry.
		return o, nil
	case order.StatusCancelled:
		return nil, ErrOrderCancelled
	}

	confirmed, err := s.store.ConfirmPayment(ctx, o.ID, req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		return nil, errors.Wrap(err, "confirm payment")
	}

	o.GatewayPaymentID = req.GatewayPaymentID
	o.GatewaySignature = req.GatewaySignature
	o.Status = order.StatusConfirmed

	if !confirmed {
		// Lost the race against a concurrent identical callback; the winner
		// already dispatched notifications.
		zctx.From(ctx).Debug("payment already confirmed concurrently",
			zap.String("order_ref", o.OrderRef))
		return o, nil
	}

	s.dispatcher.OrderConfirmed(o)
	return o, nil
}
