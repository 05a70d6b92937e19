package sales

import "github.com/go-chi/chi/v5"

// MountRoutes registers sale routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyRole(h.roles.SaleRead...))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAnyRole(h.roles.SaleWrite...))
		r.Post("/", h.create)
		r.Patch("/{id}/status", h.updateStatus)
	})
}
