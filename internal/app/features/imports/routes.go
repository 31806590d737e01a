// internal/app/features/imports/routes.go
package imports

import "github.com/go-chi/chi/v5"

// Routes returns the router for the import endpoint.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.ServeImport)
	return r
}
