package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/attarco/checkout/internal/domain/order"
)

// AdminChannel is the fixed broadcast topic all admin subscribers join.
const AdminChannel = "admins"

const defaultQueueSize = 256

// Dispatcher fans confirmed orders out to persisted notifications, the
// real-time admin channel, and best-effort emails. It runs as supervised
// background work decoupled from the confirming request: OrderConfirmed
// enqueues, and every downstream failure is logged, never propagated.
type Dispatcher struct {
	store      Repository
	admins     AdminDirectory
	broadcast  Broadcaster
	mail       EmailSender
	adminEmail string

	queue chan *order.Order
	g     *errgroup.Group
	lg    *zap.Logger
	ctx   context.Context
}

// NewDispatcher creates a dispatcher. adminEmail is the destination of the
// per-order admin summary mail.
func NewDispatcher(store Repository, admins AdminDirectory, broadcast Broadcaster, mail EmailSender, adminEmail string) *Dispatcher {
	return &Dispatcher{
		store:      store,
		admins:     admins,
		broadcast:  broadcast,
		mail:       mail,
		adminEmail: adminEmail,
		queue:      make(chan *order.Order, defaultQueueSize),
		lg:         zap.NewNop(),
		ctx:        context.Background(),
	}
}

// Start launches the worker. It returns once the worker is running; the
// worker drains the queue and exits when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.lg = zctx.From(ctx)
	d.ctx = context.WithoutCancel(ctx)
	d.g, ctx = errgroup.WithContext(ctx)
	d.g.Go(func() error {
		for {
			select {
			case o := <-d.queue:
				d.process(ctx, o)
			case <-ctx.Done():
				// Drain what is already queued before stopping.
				for {
					select {
					case o := <-d.queue:
						d.process(context.WithoutCancel(ctx), o)
					default:
						return nil
					}
				}
			}
		}
	})
}

// Wait blocks until the worker has stopped. Call after cancelling the Start
// context during shutdown.
func (d *Dispatcher) Wait() error {
	if d.g == nil {
		return nil
	}
	return d.g.Wait()
}

// OrderConfirmed enqueues a confirmed order for fan-out. If the queue is
// saturated the per-admin rows are persisted inline instead, sacrificing
// only the push and emails for that order: stalling the payment confirmation
// path on full fan-out is worse than a missed push, but the durable
// notification rows must never be lost.
func (d *Dispatcher) OrderConfirmed(o *order.Order) {
	select {
	case d.queue <- o:
	default:
		d.lg.Error("notification queue full, persisting rows inline",
			zap.String("order_ref", o.OrderRef))
		d.persistRows(d.ctx, o)
	}
}

// process performs the fan-out for one confirmed order. Each side channel
// (per-admin rows, pushes, the two emails) fails independently: every error
// is logged and the rest proceed.
func (d *Dispatcher) process(ctx context.Context, o *order.Order) {
	lg := zctx.From(ctx).With(
		zap.String("order_ref", o.OrderRef),
		zap.String("invoice", o.InvoiceNumber),
	)

	admins, err := d.admins.ListAdmins(ctx)
	if err != nil {
		lg.Error("list admins", zap.Error(err))
		admins = nil // still send the emails below
	}

	message := eventMessage(o)

	for _, admin := range admins {
		n, err := d.store.Create(ctx, admin.ID, message)
		if err != nil {
			// The push payload carries the row id, so nothing to push here;
			// other admins are unaffected.
			lg.Error("persist notification", zap.String("admin", admin.ID), zap.Error(err))
			continue
		}

		if err := d.broadcast.Publish(ctx, AdminChannel, encodeEvent(n)); err != nil {
			// Best effort: the row is persisted, the admin sees it on next
			// fetch even though the live push was lost.
			lg.Warn("broadcast notification", zap.String("admin", admin.ID), zap.Error(err))
		}
	}

	d.sendEmail(ctx, lg, o.CustomerEmail,
		fmt.Sprintf("Invoice %s", o.InvoiceNumber),
		customerEmailBody(o),
	)
	d.sendEmail(ctx, lg, d.adminEmail,
		fmt.Sprintf("New order %s", o.OrderRef),
		adminEmailBody(o),
	)
}

// persistRows is the queue-overflow fallback: it writes the per-admin rows
// synchronously and skips the push and emails.
func (d *Dispatcher) persistRows(ctx context.Context, o *order.Order) {
	lg := d.lg.With(zap.String("order_ref", o.OrderRef))

	admins, err := d.admins.ListAdmins(ctx)
	if err != nil {
		lg.Error("list admins", zap.Error(err))
		return
	}

	message := eventMessage(o)
	for _, admin := range admins {
		if _, err := d.store.Create(ctx, admin.ID, message); err != nil {
			lg.Error("persist notification", zap.String("admin", admin.ID), zap.Error(err))
		}
	}
}

// eventMessage renders the per-admin notification text for a confirmed order.
func eventMessage(o *order.Order) string {
	return fmt.Sprintf("New order received from %s - ₹%s", o.CustomerName, o.Total.StringFixed(2))
}

func (d *Dispatcher) sendEmail(ctx context.Context, lg *zap.Logger, to, subject, body string) {
	if to == "" {
		return
	}
	if err := d.mail.Send(ctx, to, subject, body); err != nil {
		lg.Warn("send email", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
	}
}

// encodeEvent renders the broadcast payload pushed to connected admins.
func encodeEvent(n *Notification) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(n.ID) })
		e.Field("text", func(e *jx.Encoder) { e.Str(n.Message) })
		e.Field("timestamp", func(e *jx.Encoder) { e.Str(n.CreatedAt.Format(time.RFC3339)) })
	})
	return e.Bytes()
}

func customerEmailBody(o *order.Order) string {
	return fmt.Sprintf(
		"Dear %s,\n\nThank you for your order.\n\nInvoice: %s\nOrder: %s\nTotal: ₹%s\n\nYour order will be shipped shortly.\n",
		o.Shipping.Name, o.InvoiceNumber, o.OrderRef, o.Total.StringFixed(2),
	)
}

func adminEmailBody(o *order.Order) string {
	body := fmt.Sprintf(
		"Order %s (%s) confirmed.\n\nCustomer: %s\nShip to: %s, %s, %s (%s)\n\nItems:\n",
		o.OrderRef, o.InvoiceNumber, o.CustomerName,
		o.Shipping.Name, o.Shipping.Address, o.Shipping.Pincode, o.Shipping.Phone,
	)
	for _, l := range o.Lines {
		body += fmt.Sprintf("  %s x %d @ ₹%s\n", l.ItemName, l.Quantity, l.UnitPrice.StringFixed(2))
	}
	body += fmt.Sprintf("\nTotal: ₹%s\n", o.Total.StringFixed(2))
	return body
}
