// Package shared holds helpers used across feature handlers.
package shared

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/caseroom/internal/app/system/auth"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentUser resolves the signed-in user from the request context.
// Routes behind auth.RequireSignedIn always have one; the error path
// covers direct handler tests and misconfigured routing.
func CurrentUser(r *http.Request) (models.User, error) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		return models.User{}, faults.ErrUnauthenticated
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("bad session user id: %w", faults.ErrUnauthenticated)
	}
	return models.User{ID: id, Email: su.Email}, nil
}

// PathObjectID parses a chi URL parameter as an ObjectID. A malformed
// id maps to not-found so probing with garbage ids looks the same as
// probing with unknown ones.
func PathObjectID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("bad id %q: %w", raw, faults.ErrNotFound)
	}
	return id, nil
}
