// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Action tags recorded in the audit trail.
const (
	ActionRoomCreate       = "room.create"
	ActionRoomAddMember    = "room.add_member"
	ActionRoomUpdateMember = "room.update_member"
	ActionRoomRemoveMember = "room.remove_member"
	ActionRoomDelete       = "room.delete"
	ActionRoomLinkFile     = "room.link_file"
	ActionRoomPreviewFile  = "room.preview_file"
	ActionRoomDeleteFile   = "room.delete_file"
	ActionFileImport       = "file.import"
	ActionFileDelete       = "file.delete"
)

// Object types for the object_type field.
const (
	ObjectRoom = "room"
	ObjectFile = "file"
	ObjectUser = "user"
)

// Entry is one immutable audit record. There is deliberately no update
// or delete operation on this collection.
type Entry struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
	ActorID   *primitive.ObjectID `bson:"actor_id,omitempty"`
	Action    string              `bson:"action"`

	ObjectType string              `bson:"object_type,omitempty"`
	ObjectID   string              `bson:"object_id,omitempty"`
	RoomID     *primitive.ObjectID `bson:"room_id,omitempty"`

	// Request provenance.
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Additional attributes (for example the created/duplicate outcome
	// of an import).
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter narrows an audit query.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	RoomID    *primitive.ObjectID
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
}

// Store manages the append-only audit collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_entries")}
}

// EnsureIndexes creates indexes for the common review queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "room_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "actor_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "action", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Append inserts one audit entry.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

// Query retrieves audit entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	query := bson.M{}
	if filter.ActorID != nil {
		query["actor_id"] = filter.ActorID
	}
	if filter.RoomID != nil {
		query["room_id"] = filter.RoomID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByAction returns the number of entries with the given action,
// optionally scoped to a room.
func (s *Store) CountByAction(ctx context.Context, action string, roomID *primitive.ObjectID) (int64, error) {
	query := bson.M{"action": action}
	if roomID != nil {
		query["room_id"] = roomID
	}
	return s.c.CountDocuments(ctx, query)
}
