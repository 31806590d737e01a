package importer_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/caseroom/internal/app/store/audit"
	"github.com/dalemusser/caseroom/internal/app/store/blob"
	contentstore "github.com/dalemusser/caseroom/internal/app/store/contents"
	credentialstore "github.com/dalemusser/caseroom/internal/app/store/credentials"
	membershipstore "github.com/dalemusser/caseroom/internal/app/store/memberships"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	roomstore "github.com/dalemusser/caseroom/internal/app/store/rooms"
	userstore "github.com/dalemusser/caseroom/internal/app/store/users"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/app/system/drive"
	"github.com/dalemusser/caseroom/internal/app/system/importer"
	"github.com/dalemusser/caseroom/internal/app/system/registry"
	"github.com/dalemusser/caseroom/internal/app/system/vault"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"github.com/dalemusser/caseroom/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// fakeDrive serves one file and rejects tokens it does not know.
type fakeDrive struct {
	goodToken atomic.Value // string
	requests  atomic.Int64
	fileID    string
	fileName  string
	fileBody  string
}

func newFakeDrive(goodToken string) *fakeDrive {
	f := &fakeDrive{
		fileID:   "drive-f1",
		fileName: "brief.pdf",
		fileBody: "file contents",
	}
	f.goodToken.Store(goodToken)
	return f
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if r.Header.Get("Authorization") != "Bearer "+f.goodToken.Load().(string) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if r.URL.Path != "/files/"+f.fileID {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.URL.Query().Get("alt") == "media" {
		w.Write([]byte(f.fileBody))
		return
	}
	fmt.Fprintf(w, `{"id":%q,"name":%q,"mimeType":"application/pdf","size":"%d"}`,
		f.fileID, f.fileName, len(f.fileBody))
}

// stubRefresher swaps in a new token and counts provider round trips.
type stubRefresher struct {
	calls atomic.Int64
	token string
	err   error
}

func (r *stubRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	r.calls.Add(1)
	if r.err != nil {
		return "", time.Time{}, r.err
	}
	return r.token, time.Now().Add(time.Hour).UTC(), nil
}

type env struct {
	imp        *importer.Importer
	contents   *contentstore.Store
	links      *roomlinkstore.Store
	auditStore *audit.Store
	drive      *fakeDrive
	refresher  *stubRefresher
	fx         *testutil.Fixtures
}

func newEnv(t *testing.T, db *mongo.Database, goodToken string, refresher *stubRefresher) *env {
	t.Helper()

	fake := newFakeDrive(goodToken)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := drive.NewClient()
	client.BaseURL = srv.URL
	client.HTTPClient = srv.Client()

	blobs := blob.NewMemory()
	contents := contentstore.New(db, blobs)
	links := roomlinkstore.New(db)
	auditStore := audit.New(db)
	auditLog := auditlog.New(auditStore, zap.NewNop())
	reg := registry.New(roomstore.New(db), membershipstore.New(db), links, userstore.New(db), auditLog)
	v := vault.New(credentialstore.New(db), refresher, zap.NewNop())

	return &env{
		imp:        importer.New(v, client, contents, links, reg, auditLog, zap.NewNop()),
		contents:   contents,
		links:      links,
		auditStore: auditStore,
		drive:      fake,
		refresher:  refresher,
		fx:         testutil.NewFixtures(t, db),
	}
}

func (e *env) userWithCredential(ctx context.Context, t *testing.T, accessToken string) models.User {
	t.Helper()
	user := e.fx.CreateUser(ctx, "importer@firm.example")
	e.fx.CreateCredential(ctx, user.ID, importer.Provider, models.Credential{
		AccessToken:  accessToken,
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	})
	return user
}

func TestImportOne_IntoRoom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db, "good-token", &stubRefresher{})

	user := e.userWithCredential(ctx, t, "good-token")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, user.ID, string(authz.RoleEditor))

	res, err := e.imp.ImportOne(ctx, user, &room.ID, e.drive.fileID, auditlog.Provenance{})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res.Outcome != importer.OutcomeCreated {
		t.Errorf("outcome = %q, want created", res.Outcome)
	}
	if !res.Linked {
		t.Error("expected file linked into room")
	}
	if res.Content.Name != "brief.pdf" {
		t.Errorf("name = %q, want brief.pdf", res.Content.Name)
	}
	if res.Content.DriveFileID != e.drive.fileID {
		t.Errorf("drive file id = %q, want %q", res.Content.DriveFileID, e.drive.fileID)
	}

	data, err := e.contents.ReadBytes(ctx, res.Content)
	if err != nil {
		t.Fatalf("read bytes failed: %v", err)
	}
	if string(data) != e.drive.fileBody {
		t.Error("stored bytes differ from source bytes")
	}

	linked, err := e.links.Exists(ctx, room.ID, res.Content.ID)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !linked {
		t.Error("room link missing")
	}

	n, err := e.auditStore.CountByAction(ctx, audit.ActionFileImport, &room.ID)
	if err != nil {
		t.Fatalf("count audit failed: %v", err)
	}
	if n != 1 {
		t.Errorf("file.import audit entries = %d, want 1", n)
	}
}

func TestImportOne_DuplicateOutcome(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db, "good-token", &stubRefresher{})

	user := e.userWithCredential(ctx, t, "good-token")

	first, err := e.imp.ImportOne(ctx, user, nil, e.drive.fileID, auditlog.Provenance{})
	if err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	second, err := e.imp.ImportOne(ctx, user, nil, e.drive.fileID, auditlog.Provenance{})
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	if second.Outcome != importer.OutcomeDuplicate {
		t.Errorf("outcome = %q, want duplicate", second.Outcome)
	}
	if second.Content.ID != first.Content.ID {
		t.Error("duplicate import must resolve to the same content object")
	}

	// Both imports are audited, each carrying its own outcome.
	entries, err := e.auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionFileImport})
	if err != nil {
		t.Fatalf("query audit failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	outcomes := map[string]int{}
	for _, entry := range entries {
		outcomes[entry.Details["outcome"]]++
	}
	if outcomes["created"] != 1 || outcomes["duplicate"] != 1 {
		t.Errorf("outcomes = %v, want one created and one duplicate", outcomes)
	}
}

func TestImportOne_RefreshesRejectedToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Stored token looks valid locally but the source only accepts the
	// refreshed one.
	refresher := &stubRefresher{token: "refreshed-token"}
	e := newEnv(t, db, "refreshed-token", refresher)

	user := e.userWithCredential(ctx, t, "locally-valid-but-rejected")

	res, err := e.imp.ImportOne(ctx, user, nil, e.drive.fileID, auditlog.Provenance{})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if res.Outcome != importer.OutcomeCreated {
		t.Errorf("outcome = %q, want created", res.Outcome)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

func TestImportOne_SecondRejectionIsReauth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Even the refreshed token is rejected by the source.
	refresher := &stubRefresher{token: "still-rejected"}
	e := newEnv(t, db, "some-other-token", refresher)

	user := e.userWithCredential(ctx, t, "rejected")

	_, err := e.imp.ImportOne(ctx, user, nil, e.drive.fileID, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

func TestImportOne_RoomCheckBeforeSource(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db, "good-token", &stubRefresher{})

	user := e.userWithCredential(ctx, t, "good-token")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, user.ID, string(authz.RoleViewer))

	_, err := e.imp.ImportOne(ctx, user, &room.ID, e.drive.fileID, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := e.drive.requests.Load(); got != 0 {
		t.Errorf("source requests = %d, want 0 before authorization", got)
	}
}

func TestImportOne_MissingFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db, "good-token", &stubRefresher{})

	user := e.userWithCredential(ctx, t, "good-token")

	_, err := e.imp.ImportOne(ctx, user, nil, "no-such-file", auditlog.Provenance{})
	if !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	n, err := e.auditStore.CountByAction(ctx, audit.ActionFileImport, nil)
	if err != nil {
		t.Fatalf("count audit failed: %v", err)
	}
	if n != 0 {
		t.Errorf("audit entries = %d, want 0 for failed import", n)
	}
}
