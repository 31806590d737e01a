// internal/app/store/credentials/credentialstore.go
package credentialstore

import (
	"context"
	"fmt"
	"time"

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
	return &Store{c: db.Collection("credentials")}
}

// Get returns the credential for (userID, provider), or ErrNotFound.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID, provider string) (models.Credential, error) {
	var cred models.Credential
	err := s.c.FindOne(ctx, bson.M{"user_id": userID, "provider": provider}).Decode(&cred)
	if err == mongo.ErrNoDocuments {
		return models.Credential{}, fmt.Errorf("credential %s/%s: %w", userID.Hex(), provider, faults.ErrNotFound)
	}
	if err != nil {
		return models.Credential{}, err
	}
	return cred, nil
}

// Upsert stores tokens from a fresh OAuth grant. An empty refresh token
// keeps any previously stored one (providers only return the refresh
// token on the first consent). A successful grant also clears the
// invalid flag.
func (s *Store) Upsert(ctx context.Context, userID primitive.ObjectID, provider string, cred models.Credential) error {
	now := time.Now().UTC()
	set := bson.M{
		"access_token": cred.AccessToken,
		"token_type":   cred.TokenType,
		"scope":        cred.Scope,
		"expires_at":   cred.ExpiresAt,
		"invalid":      false,
		"updated_at":   now,
	}
	if cred.RefreshToken != "" {
		set["refresh_token"] = cred.RefreshToken
	}

	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "provider": provider},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"user_id":    userID,
				"provider":   provider,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// UpdateAccessToken persists a refreshed access token and its expiry.
func (s *Store) UpdateAccessToken(ctx context.Context, userID primitive.ObjectID, provider, accessToken string, expiresAt time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "provider": provider},
		bson.M{"$set": bson.M{
			"access_token": accessToken,
			"expires_at":   expiresAt,
			"invalid":      false,
			"updated_at":   time.Now().UTC(),
		}},
	)
	return err
}

// MarkInvalid flags the credential as unusable until the user signs in
// with the provider again.
func (s *Store) MarkInvalid(ctx context.Context, userID primitive.ObjectID, provider string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID, "provider": provider},
		bson.M{"$set": bson.M{
			"invalid":    true,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}
