// internal/app/features/rooms/routes.go
package rooms

import "github.com/go-chi/chi/v5"

// Routes returns the router for the room API. All routes require a
// signed-in session; room-level permissions are checked per handler.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.ServeCreate)
	r.Get("/", h.ServeList)

	r.Route("/{roomID}", func(r chi.Router) {
		r.Delete("/", h.ServeDelete)

		r.Get("/members", h.ServeListMembers)
		r.Put("/members", h.ServeUpsertMember)
		r.Delete("/members", h.ServeRemoveMember)

		r.Get("/files", h.ServeListFiles)
		r.Post("/files", h.ServeLinkFile)
		r.Get("/files/{contentID}", h.ServePreviewFile)
		r.Delete("/files/{contentID}", h.ServeUnlinkFile)
	})

	return r
}
