package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/attarco/checkout/internal/domain/identity"
)

const apiKeyHeader = "Authorization"

// authenticate resolves the bearer API key to a user and stores the
// principal on the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r.Header.Get(apiKeyHeader))
		u, err := h.auth.Resolve(r.Context(), key)
		if err != nil {
			if !errors.Is(err, identity.ErrUnknownKey) {
				zctx.From(r.Context()).Error("authenticate", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), u)))
	})
}

// requireStaff rejects non-staff principals. Must run after authenticate.
func requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := identity.UserFromContext(r.Context())
		if !ok || !u.Staff {
			writeError(w, http.StatusForbidden, "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return header
}
