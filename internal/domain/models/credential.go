// internal/domain/models/credential.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Credential holds a user's OAuth tokens for one external provider.
// Exactly one document per (user_id, provider).
//
// Only the credential vault mutates these rows; the import workflow is
// the only reader. Invalid is set when a refresh fails with an
// unrecoverable grant error, and stays set until the user signs in
// with the provider again.
type Credential struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       primitive.ObjectID `bson:"user_id"`
	Provider     string             `bson:"provider"` // e.g. "google"
	AccessToken  string             `bson:"access_token"`
	RefreshToken string             `bson:"refresh_token,omitempty"`
	TokenType    string             `bson:"token_type,omitempty"`
	Scope        string             `bson:"scope,omitempty"`
	ExpiresAt    time.Time          `bson:"expires_at,omitempty"`
	Invalid      bool               `bson:"invalid,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}
