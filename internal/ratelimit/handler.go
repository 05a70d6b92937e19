package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Handler exposes read and reset of admission counters.
type Handler struct {
	limiter *Limiter
	logger  *slog.Logger
}

// NewHandler constructs the admin handler.
func NewHandler(limiter *Limiter, logger *slog.Logger) *Handler {
	return &Handler{limiter: limiter, logger: logger}
}

// MountRoutes registers usage endpoints. Callers guard the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/usage", h.usage)
	r.Delete("/usage", h.reset)
	r.Get("/policies", h.policies)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	key, route, err := usageQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	usage, err := h.limiter.Usage(r.Context(), key, route)
	if err != nil {
		h.logger.Error("read rate limit usage", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, usage)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	key, route, err := usageQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.limiter.Reset(r.Context(), key, route); err != nil {
		h.logger.Error("reset rate limit usage", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("rate limit usage reset", slog.String("key", string(key)), slog.String("route", route))
	w.WriteHeader(http.StatusNoContent)
}

type policyView struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Limit   int64  `json:"limit"`
	Window  string `json:"window"`
}

func (h *Handler) policies(w http.ResponseWriter, _ *http.Request) {
	table := h.limiter.Policies()
	out := make([]policyView, 0, len(table.Routes())+1)
	for _, p := range append(table.Routes(), table.Default()) {
		out = append(out, policyView{ID: p.ID, Pattern: p.Pattern, Limit: p.Limit, Window: p.Window.String()})
	}
	httpx.JSON(w, http.StatusOK, out)
}

// usageQuery reads ?key=&route=. ?ip= addresses the anonymous bucket of
// that address.
func usageQuery(r *http.Request) (AdmissionKey, string, error) {
	q := r.URL.Query()
	route := strings.TrimSpace(q.Get("route"))
	if route == "" {
		return "", "", shared.ErrValidation
	}
	if key := strings.TrimSpace(q.Get("key")); key != "" {
		return AdmissionKey(key), route, nil
	}
	if ip := strings.TrimSpace(q.Get("ip")); ip != "" {
		return DeriveKey(ip, ""), route, nil
	}
	return "", "", shared.ErrValidation
}
