package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attarco/checkout/internal/domain/invoice"
	"github.com/attarco/checkout/internal/domain/order"
	"github.com/attarco/checkout/internal/domain/payment"
)

const (
	// The invoice sequencer critical section: lock the latest committed
	// order row exclusively before computing next = last + 1. The lock is
	// held until the surrounding transaction commits, so two concurrent
	// allocations can never observe the same "last" value.
	lockLatestInvoiceSQL = `SELECT invoice_seq FROM orders
		ORDER BY invoice_seq DESC LIMIT 1 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (
			id, order_ref, invoice_seq, invoice_number, customer_id,
			ship_name, ship_phone, ship_address, ship_pincode,
			subtotal, cgst_total, sgst_total, discount_amount, shipping_charge,
			total_amount, coupon_code, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			NULLIF($16, ''), $17)
		RETURNING created_at`

	insertLineSQL = `INSERT INTO order_lines (
			order_id, item_id, item_name, quantity, unit_price,
			cgst_amount, sgst_amount, line_total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	setGatewayOrderSQL = `UPDATE orders SET gateway_order_id = $2 WHERE id = $1`

	findByGatewaySQL = `SELECT o.id, o.order_ref, o.invoice_seq, o.invoice_number,
			o.customer_id, u.name, u.email,
			o.ship_name, o.ship_phone, o.ship_address, o.ship_pincode,
			o.gateway_order_id, COALESCE(o.gateway_payment_id, ''), COALESCE(o.gateway_signature, ''),
			o.subtotal, o.cgst_total, o.sgst_total, o.discount_amount,
			o.shipping_charge, o.total_amount, COALESCE(o.coupon_code, ''),
			o.status, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.customer_id
		WHERE o.gateway_order_id = $1 AND o.customer_id = $2`

	confirmPaymentSQL = `UPDATE orders
		SET gateway_payment_id = $2, gateway_signature = $3, status = 'CONFIRMED'
		WHERE id = $1 AND status = 'PENDING'`

	listConfirmedSQL = `SELECT o.id, o.order_ref, o.invoice_seq, o.invoice_number,
			o.customer_id, u.name, u.email,
			o.ship_name, o.ship_phone, o.ship_address, o.ship_pincode,
			COALESCE(o.gateway_order_id, ''), COALESCE(o.gateway_payment_id, ''), COALESCE(o.gateway_signature, ''),
			o.subtotal, o.cgst_total, o.sgst_total, o.discount_amount,
			o.shipping_charge, o.total_amount, COALESCE(o.coupon_code, ''),
			o.status, o.created_at
		FROM orders o
		JOIN users u ON u.id = o.customer_id
		WHERE o.customer_id = $1 AND o.status = 'CONFIRMED'
		ORDER BY o.created_at DESC`

	listLinesSQL = `SELECT order_id, item_id, item_name, quantity, unit_price,
			cgst_amount, sgst_amount, line_total
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY id`
)

var (
	_ order.Store   = (*OrderRepository)(nil)
	_ payment.Store = (*OrderRepository)(nil)
)

// OrderRepository implements order.Store and payment.Store on PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order atomically: it allocates the invoice number
// under an exclusive row lock, inserts the order and its lines, runs attach
// (the gateway registration), stores the gateway reference, and commits.
//
// The allocation-and-insert phase is retried once on a transient conflict
// (serialization failure, deadlock, or the empty-table first-order race on
// the invoice_seq unique index). attach is never retried: a second run
// could register a duplicate gateway order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, attach func(ctx context.Context, o *order.Order) error) error {
	attached, err := r.create(ctx, o, attach)
	if err != nil && !attached && retryable(err) {
		_, err = r.create(ctx, o, attach)
	}
	return err
}

// create runs one attempt. attached reports whether the attach callback was
// reached, which excludes the attempt from retrying.
func (r *OrderRepository) create(ctx context.Context, o *order.Order, attach func(ctx context.Context, o *order.Order) error) (attached bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var last int64
	err = tx.QueryRow(ctx, lockLatestInvoiceSQL).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, errors.Wrap(err, "lock latest invoice")
	}

	o.InvoiceSeq = last + 1
	o.InvoiceNumber = invoice.Format(o.InvoiceSeq)

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.ID, o.OrderRef, o.InvoiceSeq, o.InvoiceNumber, o.CustomerID,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Address, o.Shipping.Pincode,
		o.Subtotal, o.CGSTTotal, o.SGSTTotal, o.Discount, o.ShippingCharge,
		o.Total, o.CouponCode, string(o.Status),
	).Scan(&o.CreatedAt)
	if err != nil {
		return false, errors.Wrap(err, "insert order")
	}

	for i := range o.Lines {
		l := &o.Lines[i]
		_, err = tx.Exec(ctx, insertLineSQL,
			o.ID, l.ItemID, l.ItemName, l.Quantity, l.UnitPrice,
			l.CGST, l.SGST, l.Total,
		)
		if err != nil {
			return false, errors.Wrapf(err, "insert line %s", l.ItemID)
		}
	}

	if err := attach(ctx, o); err != nil {
		return true, errors.Wrap(err, "attach")
	}

	if _, err := tx.Exec(ctx, setGatewayOrderSQL, o.ID, o.GatewayOrderID); err != nil {
		return true, errors.Wrap(err, "set gateway order")
	}

	if err := tx.Commit(ctx); err != nil {
		return true, errors.Wrap(err, "commit")
	}
	return true, nil
}

// FindByGatewayOrder implements payment.Store.
func (r *OrderRepository) FindByGatewayOrder(ctx context.Context, gatewayOrderID, customerID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findByGatewaySQL, gatewayOrderID, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "find order by gateway id %q", gatewayOrderID)
	}

	if err := r.attachLines(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ConfirmPayment implements payment.Store. The status guard in the WHERE
// clause makes the PENDING -> CONFIRMED transition happen at most once.
func (r *OrderRepository) ConfirmPayment(ctx context.Context, orderID, gatewayPaymentID, gatewaySignature string) (bool, error) {
	tag, err := r.pool.Exec(ctx, confirmPaymentSQL, orderID, gatewayPaymentID, gatewaySignature)
	if err != nil {
		return false, errors.Wrapf(err, "confirm payment for order %q", orderID)
	}
	return tag.RowsAffected() > 0, nil
}

// ListConfirmedByCustomer implements order.Store.
func (r *OrderRepository) ListConfirmedByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listConfirmedSQL, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachLines loads and attaches the order lines for the given orders with a
// single query.
func (r *OrderRepository) attachLines(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*order.Order, len(orders))
	ids := make([]string, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		ids[i] = o.ID
	}

	rows, err := r.pool.Query(ctx, listLinesSQL, ids)
	if err != nil {
		return errors.Wrap(err, "query order lines")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			l       order.Line
		)
		err := rows.Scan(&orderID, &l.ItemID, &l.ItemName, &l.Quantity,
			&l.UnitPrice, &l.CGST, &l.SGST, &l.Total)
		if err != nil {
			return errors.Wrap(err, "scan order line")
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return errors.Wrap(rows.Err(), "iterate order lines")
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.OrderRef, &o.InvoiceSeq, &o.InvoiceNumber,
		&o.CustomerID, &o.CustomerName, &o.CustomerEmail,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Address, &o.Shipping.Pincode,
		&o.GatewayOrderID, &o.GatewayPaymentID, &o.GatewaySignature,
		&o.Subtotal, &o.CGSTTotal, &o.SGSTTotal, &o.Discount,
		&o.ShippingCharge, &o.Total, &o.CouponCode,
		&status, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	return o, err
}
