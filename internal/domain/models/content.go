// internal/domain/models/content.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentObject is a deduplicated, hash-identified unit of file content
// owned by one user. At most one document per (owner_id, sha256):
// deduplication is scoped per owner, never global, so two users who
// import identical bytes each keep their own copy and audit trail.
//
// BlobKey is an opaque key into the blob store; storage paths never
// leak into domain objects.
type ContentObject struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	SHA256      string             `bson:"sha256" json:"sha256"`
	Name        string             `bson:"name" json:"name"`
	MediaType   string             `bson:"media_type,omitempty" json:"media_type,omitempty"`
	SizeBytes   int64              `bson:"size_bytes" json:"size_bytes"`
	BlobKey     string             `bson:"blob_key" json:"-"`
	DriveFileID string             `bson:"drive_file_id,omitempty" json:"drive_file_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
