// Package testutil holds helpers for tests that run against a real
// MongoDB. Tests skip when no server is reachable, so the suite stays
// runnable on machines without one.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/caseroom/internal/app/store/audit"
	"github.com/dalemusser/caseroom/internal/app/store/oauthstate"
	"github.com/dalemusser/caseroom/internal/app/system/indexes"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoURI returns the test server URI, overridable via
// CASEROOM_TEST_MONGO_URI.
func mongoURI() string {
	if uri := os.Getenv("CASEROOM_TEST_MONGO_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// SetupTestDB connects to the test MongoDB and returns a database with
// a unique name and all indexes created. The database is dropped and
// the client disconnected when the test finishes. Skips the test if no
// server is reachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI()))
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("mongo not reachable: %v", err)
	}

	db := client.Database(fmt.Sprintf("caseroom_test_%s", uuid.NewString()[:8]))

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure audit indexes: %v", err)
	}
	if err := oauthstate.New(db).EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure oauth state indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return db
}

// TestContext returns a context with a generous timeout for test
// operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
