package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. It expects
// auth.Middleware.Authenticate to have run.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAnyRole ensures the current caller holds at least one of roles.
func (m Middleware) RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return m.Require(NewGuard(roles...))
}

// Require enforces g before next runs.
func (m Middleware) Require(g Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := g.Authorize(r.Context()); err != nil {
				var fe *ForbiddenError
				if errors.As(err, &fe) && m.Logger != nil {
					m.Logger.Info("rbac denied",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.Any("required", fe.Required))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
