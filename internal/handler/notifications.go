package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/attarco/checkout/internal/domain/identity"
	"github.com/attarco/checkout/internal/domain/notification"
)

// notificationListLimit caps the admin notification feed.
const notificationListLimit = 50

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.UserFromContext(r.Context())

	notes, err := h.notifications.ListByAdmin(r.Context(), u.ID, notificationListLimit)
	if err != nil {
		zctx.From(r.Context()).Error("list notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("notifications", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, n := range notes {
						e.Obj(func(e *jx.Encoder) {
							e.Field("id", func(e *jx.Encoder) { e.Int64(n.ID) })
							e.Field("message", func(e *jx.Encoder) { e.Str(n.Message) })
							e.Field("read", func(e *jx.Encoder) { e.Bool(n.Read) })
							e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, n.CreatedAt) })
						})
					}
				})
			})
		})
	})
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.UserFromContext(r.Context())

	if err := h.notifications.MarkAllRead(r.Context(), u.ID); err != nil {
		zctx.From(r.Context()).Error("mark notifications read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), u.ID, id); err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		zctx.From(r.Context()).Error("mark notification read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
