package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/attarco/checkout/internal/domain/identity"
	"github.com/attarco/checkout/internal/domain/payment"
)

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.UserFromContext(r.Context())

	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	req, err := decodeVerifyRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	req.CustomerID = u.ID

	o, err := h.payments.Verify(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, payment.ErrInvalidSignature):
			writeError(w, http.StatusBadRequest, "invalid payment signature")
		case errors.Is(err, payment.ErrOrderCancelled):
			writeError(w, http.StatusConflict, "order is cancelled")
		default:
			zctx.From(r.Context()).Error("verify payment", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_ref", func(e *jx.Encoder) { e.Str(o.OrderRef) })
			e.Field("invoice_number", func(e *jx.Encoder) { e.Str(o.InvoiceNumber) })
			e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		})
	})
}

func decodeVerifyRequest(body []byte) (payment.VerifyRequest, error) {
	var req payment.VerifyRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "gateway_order_id", "gateway_payment_id", "gateway_signature":
			v, err := d.Str()
			if err != nil {
				return err
			}
			switch key {
			case "gateway_order_id":
				req.GatewayOrderID = v
			case "gateway_payment_id":
				req.GatewayPaymentID = v
			default:
				req.GatewaySignature = v
			}
			return nil
		default:
			return d.Skip()
		}
	})
	return req, err
}
