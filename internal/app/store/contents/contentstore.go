// internal/app/store/contents/contentstore.go
package contentstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dalemusser/caseroom/internal/app/store/blob"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store manages deduplicated content objects. Metadata lives in Mongo;
// bytes are delegated to the blob store under opaque UUID keys.
type Store struct {
	c     *mongo.Collection
	blobs blob.Store
}

func New(db *mongo.Database, blobs blob.Store) *Store {
	return &Store{c: db.Collection("contents"), blobs: blobs}
}

// Ingest stores bytes for an owner with content-hash deduplication.
//
// The lookup-or-insert on (owner_id, sha256) must stay atomic with
// respect to concurrent ingests of identical content, so it leans on
// the collection's unique index rather than any in-process lock: the
// bytes are written to the blob store first, then the metadata insert
// either wins or collides, and the loser fetches the winner's row and
// reports a duplicate. A blob write failure leaves no metadata behind.
//
// Returns the content object and true when a new object was created,
// false when the owner already had identical content.
func (s *Store) Ingest(ctx context.Context, ownerID primitive.ObjectID, data []byte, name, mediaType, driveFileID string) (models.ContentObject, bool, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// Fast path: the owner already has this content.
	if existing, err := s.FindByOwnerAndHash(ctx, ownerID, hash); err == nil {
		return existing, false, nil
	}

	key := uuid.NewString()
	if err := s.blobs.Save(ctx, key, data); err != nil {
		return models.ContentObject{}, false, fmt.Errorf("%w: %v", faults.ErrStorageFailure, err)
	}

	content := models.ContentObject{
		ID:          primitive.NewObjectID(),
		OwnerID:     ownerID,
		SHA256:      hash,
		Name:        name,
		MediaType:   mediaType,
		SizeBytes:   int64(len(data)),
		BlobKey:     key,
		DriveFileID: driveFileID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.c.InsertOne(ctx, content)
	if err != nil {
		if wafflemongo.IsDup(err) {
			// Lost the race to a concurrent ingest of the same bytes.
			// Drop our orphaned blob and return the winner's row.
			if _, derr := s.blobs.Delete(ctx, key); derr != nil {
				return models.ContentObject{}, false, derr
			}
			existing, ferr := s.FindByOwnerAndHash(ctx, ownerID, hash)
			if ferr != nil {
				return models.ContentObject{}, false, ferr
			}
			return existing, false, nil
		}
		return models.ContentObject{}, false, err
	}
	return content, true, nil
}

// FindByOwnerAndHash returns the owner's content object with the given
// hash, or ErrNotFound.
func (s *Store) FindByOwnerAndHash(ctx context.Context, ownerID primitive.ObjectID, hash string) (models.ContentObject, error) {
	var content models.ContentObject
	err := s.c.FindOne(ctx, bson.M{"owner_id": ownerID, "sha256": hash}).Decode(&content)
	if err == mongo.ErrNoDocuments {
		return models.ContentObject{}, fmt.Errorf("content: %w", faults.ErrNotFound)
	}
	if err != nil {
		return models.ContentObject{}, err
	}
	return content, nil
}

// GetByID returns the content object with the given id, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.ContentObject, error) {
	var content models.ContentObject
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&content)
	if err == mongo.ErrNoDocuments {
		return models.ContentObject{}, fmt.Errorf("content %s: %w", id.Hex(), faults.ErrNotFound)
	}
	if err != nil {
		return models.ContentObject{}, err
	}
	return content, nil
}

// ListByOwner returns all content objects owned by a user, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.ContentObject, error) {
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var contents []models.ContentObject
	if err := cur.All(ctx, &contents); err != nil {
		return nil, err
	}
	return contents, nil
}

// GetMany returns the content objects with the given ids, keyed by id.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.ContentObject, error) {
	result := make(map[primitive.ObjectID]models.ContentObject, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var content models.ContentObject
		if err := cur.Decode(&content); err != nil {
			return nil, err
		}
		result[content.ID] = content
	}
	return result, cur.Err()
}

// ReadBytes returns the stored bytes for a content object.
func (s *Store) ReadBytes(ctx context.Context, content models.ContentObject) ([]byte, error) {
	data, err := s.blobs.Read(ctx, content.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrStorageFailure, err)
	}
	return data, nil
}

// Delete removes the metadata row and best-effort deletes the blob.
// The row goes first so a blob-delete failure cannot resurrect the
// object; an undeleted blob is unreachable garbage, not a correctness
// problem.
func (s *Store) Delete(ctx context.Context, content models.ContentObject) error {
	if _, err := s.c.DeleteOne(ctx, bson.M{"_id": content.ID}); err != nil {
		return err
	}
	_, err := s.blobs.Delete(ctx, content.BlobKey)
	return err
}
