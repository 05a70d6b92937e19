package sales

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/rbac"
	"github.com/odyssey-erp/autosales/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	rbac      rbac.Middleware
	roles     shared.RoleSets
}

func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, roles shared.RoleSets) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		rbac:      rbacMW,
		roles:     roles,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := httpx.PageParams(r)
	req := ListSalesRequest{
		CustomerID: strings.TrimSpace(q.Get("customer_id")),
		VehicleID:  strings.TrimSpace(q.Get("vehicle_id")),
		Page:       page,
		PerPage:    perPage,
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := Status(strings.ToUpper(raw))
		req.Status = &status
	}
	out, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	sale, err := h.service.Create(r.Context(), req, claims.Subject)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "create sale", err)
		return
	}
	h.logger.Info("sale created",
		slog.String("id", sale.ID),
		slog.String("vehicle_id", sale.VehicleID),
		slog.String("seller_id", sale.SellerID))
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "update sale status", err)
		return
	}
	h.logger.Info("sale status changed", slog.String("id", sale.ID), slog.String("status", string(sale.Status)))
	httpx.JSON(w, http.StatusOK, sale)
}
