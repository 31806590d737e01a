// internal/app/features/files/routes.go
package files

import "github.com/go-chi/chi/v5"

// Routes returns the router for the personal file library.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{contentID}", h.ServeDownload)
	r.Delete("/{contentID}", h.ServeDelete)

	return r
}
