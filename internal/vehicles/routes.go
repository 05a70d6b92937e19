package vehicles

import "github.com/go-chi/chi/v5"

// MountRoutes registers vehicle routes. The router must already
// authenticate callers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyRole(h.roles.VehicleRead...))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyRole(h.roles.VehicleWrite...))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Patch("/{id}/status", h.changeStatus)
	})
}
