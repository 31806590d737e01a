// internal/app/store/roomlinks/roomlinkstore.go
package roomlinkstore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("room_links")}
}

// Link associates a content object with a room. Linking an
// already-linked pair is a no-op: the unique index on
// (room_id, content_id) turns the duplicate insert into "already
// linked". Returns true when a new link was created.
func (s *Store) Link(ctx context.Context, roomID, contentID primitive.ObjectID) (bool, error) {
	link := models.RoomLink{
		ID:        primitive.NewObjectID(),
		RoomID:    roomID,
		ContentID: contentID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, link); err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Exists reports whether a content object is linked to a room.
func (s *Store) Exists(ctx context.Context, roomID, contentID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"room_id": roomID, "content_id": contentID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Unlink removes the (room, content) association. Returns true when a
// link was actually removed.
func (s *Store) Unlink(ctx context.Context, roomID, contentID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"room_id": roomID, "content_id": contentID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByRoom returns all links for a room ordered by link time.
func (s *Store) ListByRoom(ctx context.Context, roomID primitive.ObjectID) ([]models.RoomLink, error) {
	cur, err := s.c.Find(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var links []models.RoomLink
	if err := cur.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// DeleteByContent removes all links referencing a content object, for
// cleanup when the object itself is deleted.
func (s *Store) DeleteByContent(ctx context.Context, contentID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"content_id": contentID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByRoom removes all links for a room.
func (s *Store) DeleteByRoom(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
