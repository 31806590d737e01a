package testutil

import (
	"context"
	"net/http"

	"github.com/dalemusser/caseroom/internal/app/system/auth"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// SignedInAs returns a request whose context carries the user, as if
// the session middleware had run.
func SignedInAs(r *http.Request, u models.User) *http.Request {
	return auth.WithUser(r, &auth.SessionUser{ID: u.ID.Hex(), Email: u.Email})
}
