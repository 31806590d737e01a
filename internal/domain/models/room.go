// internal/domain/models/room.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Room is an isolated document space (for example, one legal matter).
//
// A room has no owner field of its own; ownership is expressed entirely
// through memberships with the "owner" role. A room always has at least
// one owner (enforced by the membership registry).
type Room struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
