package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/attarco/checkout/internal/domain/catalog"
	"github.com/attarco/checkout/internal/domain/identity"
	"github.com/attarco/checkout/internal/domain/order"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.UserFromContext(r.Context())

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	req, err := decodeCheckoutRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.CustomerID = u.ID

	o, err := h.orders.Checkout(r.Context(), req)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.UserFromContext(r.Context())

	orders, err := h.orders.MyOrders(r.Context(), u.ID)
	if err != nil {
		zctx.From(r.Context()).Error("list orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range orders {
						encodeOrder(e, &orders[i])
					}
				})
			})
		})
	})
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *catalog.ItemNotFoundError
	switch {
	case errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrMissingShipping):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusBadRequest, notFound.Error())
	default:
		zctx.From(r.Context()).Error("create order", zap.Error(err))
		writeError(w, http.StatusBadGateway, "order could not be created")
	}
}

func decodeCheckoutRequest(body []byte) (order.CheckoutRequest, error) {
	var req order.CheckoutRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "shipping":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "name", "phone", "address", "pincode":
				default:
					return d.Skip()
				}
				v, err := d.Str()
				if err != nil {
					return err
				}
				switch key {
				case "name":
					req.Shipping.Name = v
				case "phone":
					req.Shipping.Phone = v
				case "address":
					req.Shipping.Address = v
				case "pincode":
					req.Shipping.Pincode = v
				}
				return nil
			})
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.LineRequest
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "item_id":
						v, err := d.Str()
						if err != nil {
							return err
						}
						line.ItemID = v
						return nil
					case "quantity":
						v, err := d.Int()
						if err != nil {
							return err
						}
						line.Quantity = v
						return nil
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Lines = append(req.Lines, line)
				return nil
			})
		case "coupon_code":
			v, err := d.Str()
			if err != nil {
				return err
			}
			req.CouponCode = v
			return nil
		default:
			return d.Skip()
		}
	})
	return req, err
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_ref", func(e *jx.Encoder) { e.Str(o.OrderRef) })
		e.Field("invoice_number", func(e *jx.Encoder) { e.Str(o.InvoiceNumber) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("gateway_order_id", func(e *jx.Encoder) { e.Str(o.GatewayOrderID) })
		e.Field("shipping", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(o.Shipping.Name) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(o.Shipping.Phone) })
				e.Field("address", func(e *jx.Encoder) { e.Str(o.Shipping.Address) })
				e.Field("pincode", func(e *jx.Encoder) { e.Str(o.Shipping.Pincode) })
			})
		})
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("item_id", func(e *jx.Encoder) { e.Str(l.ItemID) })
						e.Field("item_name", func(e *jx.Encoder) { e.Str(l.ItemName) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("unit_price", func(e *jx.Encoder) { encodeDecimal(e, l.UnitPrice) })
						e.Field("cgst", func(e *jx.Encoder) { encodeDecimal(e, l.CGST) })
						e.Field("sgst", func(e *jx.Encoder) { encodeDecimal(e, l.SGST) })
						e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, l.Total) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeDecimal(e, o.Subtotal) })
		e.Field("cgst_total", func(e *jx.Encoder) { encodeDecimal(e, o.CGSTTotal) })
		e.Field("sgst_total", func(e *jx.Encoder) { encodeDecimal(e, o.SGSTTotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeDecimal(e, o.Discount) })
		e.Field("shipping_charge", func(e *jx.Encoder) { encodeDecimal(e, o.ShippingCharge) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
		if o.CouponCode != "" {
			e.Field("coupon_code", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
	})
}
