// internal/app/store/rooms/roomstore.go
package roomstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("rooms")}
}

// Create inserts a new room and returns it with its generated id.
func (s *Store) Create(ctx context.Context, name string) (models.Room, error) {
	room := models.Room{
		ID:        primitive.NewObjectID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, room); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// GetByID returns the room with the given id, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Room, error) {
	var room models.Room
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return models.Room{}, fmt.Errorf("room %s: %w", id.Hex(), faults.ErrNotFound)
	}
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// GetMany returns the rooms with the given ids, keyed by id.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Room, error) {
	result := make(map[primitive.ObjectID]models.Room, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var room models.Room
		if err := cur.Decode(&room); err != nil {
			return nil, err
		}
		result[room.ID] = room
	}
	return result, cur.Err()
}

// Delete removes a room document. Memberships and links are cleaned up
// by the registry, not here.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
