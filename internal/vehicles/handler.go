package vehicles

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/rbac"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// Handler exposes the vehicle catalog over JSON.
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
	req := ListVehiclesRequest{
		Brand:   strings.TrimSpace(q.Get("brand")),
		Page:    page,
		PerPage: perPage,
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := Status(strings.ToUpper(raw))
		req.Status = &status
	}
	out, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "list vehicles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "get vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "create vehicle", err)
		return
	}
	h.logger.Info("vehicle created", slog.String("id", v.ID), slog.String("vin", v.VIN))
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateVehicleRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "update vehicle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	v, err := h.service.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.LogAndRespond(w, h.logger, "change vehicle status", err)
		return
	}
	h.logger.Info("vehicle status changed", slog.String("id", id), slog.String("status", string(v.Status)))
	httpx.JSON(w, http.StatusOK, v)
}
