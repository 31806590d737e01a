// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique indexes here are load-bearing, not advisory: concurrent
ingests and membership upserts rely on the store rejecting duplicate
(owner, hash) and (room, user) pairs, because only the data store
spans processes.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureCredentials(ctx, db); err != nil {
		problems = append(problems, "credentials: "+err.Error())
	}
	if err := ensureMemberships(ctx, db); err != nil {
		problems = append(problems, "memberships: "+err.Error())
	}
	if err := ensureContents(ctx, db); err != nil {
		problems = append(problems, "contents: "+err.Error())
	}
	if err := ensureRoomLinks(ctx, db); err != nil {
		problems = append(problems, "room_links: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	return err
}

func ensureCredentials(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("credentials").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "provider", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_user_provider"),
	})
	return err
}

func ensureMemberships(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("memberships").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_room_user"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_user"),
		},
	})
	return err
}

func ensureContents(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("contents").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "sha256", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_owner_sha256"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "drive_file_id", Value: 1}},
			Options: options.Index().SetName("idx_owner_drive_file"),
		},
	})
	return err
}

func ensureRoomLinks(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("room_links").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "content_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_room_content"),
		},
		{
			Keys:    bson.D{{Key: "content_id", Value: 1}},
			Options: options.Index().SetName("idx_content"),
		},
	})
	return err
}
