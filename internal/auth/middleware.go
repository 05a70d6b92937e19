package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// TokenVerifier is satisfied by *Verifier.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// Middleware authenticates bearer tokens.
type Middleware struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewMiddleware constructs the authentication middleware.
func NewMiddleware(verifier TokenVerifier, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{verifier: verifier, logger: logger}
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := httpx.BearerToken(r)
		if token == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		claims, err := m.verifier.Verify(token)
		if err != nil {
			if errors.Is(err, shared.ErrAuthorityUnavailable) {
				m.logger.Error("token verification failed", slog.Any("error", err))
			} else {
				m.logger.Debug("token rejected", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}
