package rooms_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	roomsfeature "github.com/dalemusser/caseroom/internal/app/features/rooms"
	"github.com/dalemusser/caseroom/internal/app/store/audit"
	"github.com/dalemusser/caseroom/internal/app/store/blob"
	contentstore "github.com/dalemusser/caseroom/internal/app/store/contents"
	membershipstore "github.com/dalemusser/caseroom/internal/app/store/memberships"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	roomstore "github.com/dalemusser/caseroom/internal/app/store/rooms"
	userstore "github.com/dalemusser/caseroom/internal/app/store/users"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/app/system/registry"
	"github.com/dalemusser/caseroom/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	handler  *roomsfeature.Handler
	contents *contentstore.Store
	links    *roomlinkstore.Store
	fx       *testutil.Fixtures
}

func newEnv(t *testing.T, db *mongo.Database) *env {
	t.Helper()

	blobs := blob.NewMemory()
	contents := contentstore.New(db, blobs)
	links := roomlinkstore.New(db)
	auditLog := auditlog.New(audit.New(db), zap.NewNop())
	reg := registry.New(roomstore.New(db), membershipstore.New(db), links, userstore.New(db), auditLog)

	return &env{
		handler:  roomsfeature.NewHandler(reg, contents, links, auditLog, zap.NewNop()),
		contents: contents,
		links:    links,
		fx:       testutil.NewFixtures(t, db),
	}
}

func TestServeCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	actor := e.fx.CreateUser(ctx, "owner@firm.example")
	body := strings.NewReader(`{"name": "  Project Alpha  "}`)
	r := testutil.SignedInAs(httptest.NewRequest(http.MethodPost, "/api/rooms", body), actor)
	w := httptest.NewRecorder()

	e.handler.ServeCreate(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"Project Alpha"`) {
		t.Errorf("response missing trimmed name: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"role":"owner"`) {
		t.Errorf("response missing owner role: %s", w.Body.String())
	}
}

func TestServeCreate_EmptyNameRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	actor := e.fx.CreateUser(ctx, "owner@firm.example")
	// Markup-only names sanitize down to nothing.
	body := strings.NewReader(`{"name": "<script>alert(1)</script>"}`)
	r := testutil.SignedInAs(httptest.NewRequest(http.MethodPost, "/api/rooms", body), actor)
	w := httptest.NewRecorder()

	e.handler.ServeCreate(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServeDelete_NonMemberGets404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	outsider := e.fx.CreateUser(ctx, "outsider@firm.example")
	room := e.fx.CreateRoom(ctx, "Hidden")

	r := httptest.NewRequest(http.MethodDelete, "/api/rooms/"+room.ID.Hex(), nil)
	r = testutil.SignedInAs(r, outsider)
	r = testutil.WithChiURLParam(r, "roomID", room.ID.Hex())
	w := httptest.NewRecorder()

	e.handler.ServeDelete(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for non-member", w.Code)
	}
}

func TestServeDelete_ViewerGets403(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	viewer := e.fx.CreateUser(ctx, "viewer@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, viewer.ID, string(authz.RoleViewer))

	r := httptest.NewRequest(http.MethodDelete, "/api/rooms/"+room.ID.Hex(), nil)
	r = testutil.SignedInAs(r, viewer)
	r = testutil.WithChiURLParam(r, "roomID", room.ID.Hex())
	w := httptest.NewRecorder()

	e.handler.ServeDelete(w, r)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for insufficient role", w.Code)
	}
}

func TestServeDelete_GarbageIDGets404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	actor := e.fx.CreateUser(ctx, "owner@firm.example")
	r := httptest.NewRequest(http.MethodDelete, "/api/rooms/not-an-id", nil)
	r = testutil.SignedInAs(r, actor)
	r = testutil.WithChiURLParam(r, "roomID", "not-an-id")
	w := httptest.NewRecorder()

	e.handler.ServeDelete(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for malformed id", w.Code)
	}
}

func TestServePreviewFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	owner := e.fx.CreateUser(ctx, "owner@firm.example")
	viewer := e.fx.CreateUser(ctx, "viewer@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, owner.ID, string(authz.RoleOwner))
	e.fx.AddMembership(ctx, room.ID, viewer.ID, string(authz.RoleViewer))

	content, _, err := e.contents.Ingest(ctx, owner.ID, []byte("exhibit A"), "exhibit.txt", "text/plain", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if _, err := e.links.Link(ctx, room.ID, content.ID); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	url := "/api/rooms/" + room.ID.Hex() + "/files/" + content.ID.Hex()
	r := testutil.SignedInAs(httptest.NewRequest(http.MethodGet, url, nil), viewer)
	r = testutil.WithChiURLParam(r, "roomID", room.ID.Hex())
	r = testutil.WithChiURLParam(r, "contentID", content.ID.Hex())
	w := httptest.NewRecorder()

	e.handler.ServePreviewFile(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "exhibit A" {
		t.Errorf("body = %q, want file bytes", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("content type = %q, want text/plain", ct)
	}
}

func TestServePreviewFile_UnlinkedFileGets404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	member := e.fx.CreateUser(ctx, "member@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, member.ID, string(authz.RoleViewer))

	// Content exists but was never linked into this room.
	content, _, err := e.contents.Ingest(ctx, member.ID, []byte("private"), "p.txt", "text/plain", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	url := "/api/rooms/" + room.ID.Hex() + "/files/" + content.ID.Hex()
	r := testutil.SignedInAs(httptest.NewRequest(http.MethodGet, url, nil), member)
	r = testutil.WithChiURLParam(r, "roomID", room.ID.Hex())
	r = testutil.WithChiURLParam(r, "contentID", content.ID.Hex())
	w := httptest.NewRecorder()

	e.handler.ServePreviewFile(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unlinked file", w.Code)
	}
}

func TestServeLinkFile_OthersFileGets404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	editor := e.fx.CreateUser(ctx, "editor@firm.example")
	other := e.fx.CreateUser(ctx, "other@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, editor.ID, string(authz.RoleEditor))

	content, _, err := e.contents.Ingest(ctx, other.ID, []byte("not yours"), "n.txt", "text/plain", "")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	body := strings.NewReader(`{"content_id": "` + content.ID.Hex() + `"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/rooms/"+room.ID.Hex()+"/files", body)
	r = testutil.SignedInAs(r, editor)
	r = testutil.WithChiURLParam(r, "roomID", room.ID.Hex())
	w := httptest.NewRecorder()

	e.handler.ServeLinkFile(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for someone else's file", w.Code)
	}
}
