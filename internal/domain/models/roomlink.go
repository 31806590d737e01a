// internal/domain/models/roomlink.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoomLink makes a ContentObject visible inside a room. At most one
// document per (room_id, content_id); a content object may be linked
// to zero, one, or many rooms.
type RoomLink struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID    primitive.ObjectID `bson:"room_id" json:"room_id"`
	ContentID primitive.ObjectID `bson:"content_id" json:"content_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
