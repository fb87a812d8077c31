// Package handler exposes the checkout service over HTTP. Routes are
// grouped by audience: customer routes require any authenticated user,
// admin routes additionally require the staff flag.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/attarco/checkout/internal/domain/identity"
	"github.com/attarco/checkout/internal/domain/notification"
	"github.com/attarco/checkout/internal/domain/order"
	"github.com/attarco/checkout/internal/domain/payment"
)

// Handler bundles the HTTP endpoints and their dependencies.
type Handler struct {
	orders        *order.Service
	payments      *payment.Service
	notifications notification.Repository
	auth          *identity.Resolver
}

// New creates the HTTP handler.
func New(orders *order.Service, payments *payment.Service, notifications notification.Repository, auth *identity.Resolver) *Handler {
	return &Handler{
		orders:        orders,
		payments:      payments,
		notifications: notifications,
		auth:          auth,
	}
}

// Routes mounts all endpoints under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Post("/orders", h.createOrder)
			r.Get("/orders", h.listOrders)
			r.Post("/payments/verify", h.verifyPayment)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireStaff)

				r.Get("/notifications", h.listNotifications)
				r.Post("/notifications/read", h.markAllNotificationsRead)
				r.Post("/notifications/{id}/read", h.markNotificationRead)
			})
		})
	})

	return r
}
