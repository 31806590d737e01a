// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an authenticated identity, keyed by email.
//
// Users are created on first successful Google sign-in and are never
// merged or deleted. Room access is not embedded here; use the
// memberships collection to discover a user's rooms.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
