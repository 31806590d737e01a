// internal/app/features/drivefiles/routes.go
package drivefiles

import "github.com/go-chi/chi/v5"

// Routes returns the router for Drive browsing.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	return r
}
