package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// IdentityMiddleware resolves the session's principal binding into a
// typed Identity and stores it in the request context. It runs after the
// session middleware and before any authorization guard. A session whose
// principal no longer exists or has been deactivated resolves to an
// anonymous request; a store failure aborts the request.
func IdentityMiddleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}
			kind, id, ok := sess.Principal()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := service.ResolveIdentity(r.Context(), kind, id)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrAccountInactive) {
					// Stale session binding; drop it so the cookie
					// stops resolving on subsequent requests.
					sess.ClearPrincipal()
					next.ServeHTTP(w, r)
					return
				}
				if logger != nil {
					logger.Error("resolve identity", slog.String("kind", string(kind)), slog.Int64("principal_id", id), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
