package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Handler wires HTTP endpoints for identity inspection.
type Handler struct {
	logger     *slog.Logger
	verifier   TokenVerifier
	middleware *Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, verifier TokenVerifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		verifier:   verifier,
		middleware: NewMiddleware(verifier, logger),
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.middleware.Authenticate).Get("/me", h.me)
	r.Post("/introspect", h.introspect)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, claims)
}

type introspectRequest struct {
	Token string `json:"token" validate:"required"`
}

type introspectResponse struct {
	Active bool    `json:"active"`
	Claims *Claims `json:"claims,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

func (h *Handler) introspect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	claims, err := h.verifier.Verify(req.Token)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, introspectResponse{Active: true, Claims: &claims})
	case errors.Is(err, shared.ErrAuthorityUnavailable):
		h.logger.Error("introspect token", slog.Any("error", err))
		httpx.RespondError(w, err)
	default:
		httpx.JSON(w, http.StatusOK, introspectResponse{Active: false, Reason: inactiveReason(err)})
	}
}

func inactiveReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrTokenExpired):
		return "expired"
	case errors.Is(err, shared.ErrInvalidIssuer):
		return "invalid_issuer"
	default:
		return "malformed"
	}
}
