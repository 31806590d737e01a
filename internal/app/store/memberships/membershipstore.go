// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// Upsert creates or updates the membership for (roomID, userID) with
// insert-or-update semantics; the unique index on (room_id, user_id)
// guarantees there is never more than one row per pair, even under
// concurrent calls. Returns true when a new membership was created.
func (s *Store) Upsert(ctx context.Context, roomID, userID primitive.ObjectID, role authz.Role) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("membership upsert: %w: invalid role %q", faults.ErrConflict, role)
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"room_id": roomID, "user_id": userID},
		bson.M{
			"$set":         bson.M{"role": string(role)},
			"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

// Get returns the membership for (roomID, userID), or ErrNotFound.
func (s *Store) Get(ctx context.Context, roomID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"room_id": roomID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Membership{}, fmt.Errorf("membership: %w", faults.ErrNotFound)
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// Remove deletes the membership for (roomID, userID). Returns true when
// a document was actually removed.
func (s *Store) Remove(ctx context.Context, roomID, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"room_id": roomID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByRoom returns all memberships for a room ordered by join time.
func (s *Store) ListByRoom(ctx context.Context, roomID primitive.ObjectID) ([]models.Membership, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListByUser returns all memberships for a user.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountOwners returns how many owners a room has. The registry uses it
// to keep rooms from reaching zero owners.
func (s *Store) CountOwners(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"room_id": roomID, "role": string(authz.RoleOwner)})
}

// DeleteByRoom removes all memberships for a room. Returns the number
// of documents deleted.
func (s *Store) DeleteByRoom(ctx context.Context, roomID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
