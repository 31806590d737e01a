package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given email.
func (f *Fixtures) CreateUser(ctx context.Context, email string) models.User {
	f.t.Helper()

	u := models.User{
		ID:        primitive.NewObjectID(),
		Email:     strings.ToLower(email),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateRoom inserts a room with the given name.
func (f *Fixtures) CreateRoom(ctx context.Context, name string) models.Room {
	f.t.Helper()

	room := models.Room{
		ID:        primitive.NewObjectID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("rooms").InsertOne(ctx, room); err != nil {
		f.t.Fatalf("create room: %v", err)
	}
	return room
}

// AddMembership inserts a membership row directly.
func (f *Fixtures) AddMembership(ctx context.Context, roomID, userID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:        primitive.NewObjectID(),
		RoomID:    roomID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("add membership: %v", err)
	}
	return m
}

// CreateCredential inserts a credential for (userID, provider).
func (f *Fixtures) CreateCredential(ctx context.Context, userID primitive.ObjectID, provider string, cred models.Credential) models.Credential {
	f.t.Helper()

	now := time.Now().UTC()
	cred.ID = primitive.NewObjectID()
	cred.UserID = userID
	cred.Provider = provider
	cred.CreatedAt = now
	cred.UpdatedAt = now
	if _, err := f.db.Collection("credentials").InsertOne(ctx, cred); err != nil {
		f.t.Fatalf("create credential: %v", err)
	}
	return cred
}
