package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/autosales/internal/platform/httpx"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// RolesHandler reports the role requirement of each operation group.
type RolesHandler struct {
	sets shared.RoleSets
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(sets shared.RoleSets) *RolesHandler {
	return &RolesHandler{sets: sets}
}

// MountRoutes registers role routes. Callers guard the router.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRequirements)
}

func (h *RolesHandler) listRequirements(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string][]string{
		"vehicle_read":   normalizeRoles(h.sets.VehicleRead),
		"vehicle_write":  normalizeRoles(h.sets.VehicleWrite),
		"customer_read":  normalizeRoles(h.sets.CustomerRead),
		"customer_write": normalizeRoles(h.sets.CustomerWrite),
		"sale_read":      normalizeRoles(h.sets.SaleRead),
		"sale_write":     normalizeRoles(h.sets.SaleWrite),
		"admin":          normalizeRoles(h.sets.Admin),
	})
}
