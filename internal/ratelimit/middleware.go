package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
)

// Middleware enforces the limiter on every request it wraps.
type Middleware struct {
	limiter *Limiter
	logger  *slog.Logger
}

// NewMiddleware constructs the HTTP admission gate.
func NewMiddleware(limiter *Limiter, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{limiter: limiter, logger: logger}
}

// Handler rejects requests over their route's limit with 429. A limiter
// error lets the request through; the counters already degrade on their
// own, so only cancelled contexts end up here.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := DeriveKey(ClientAddr(r), httpx.BearerToken(r))
		decision, err := m.limiter.Check(r.Context(), key, r.URL.Path)
		if err != nil {
			m.logger.Warn("rate limit check failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Policy.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			h.Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			httpx.RespondError(w, decision.Err())
			return
		}
		next.ServeHTTP(w, r)
	})
}
