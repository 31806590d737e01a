package registry_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/caseroom/internal/app/store/audit"
	membershipstore "github.com/dalemusser/caseroom/internal/app/store/memberships"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	roomstore "github.com/dalemusser/caseroom/internal/app/store/rooms"
	userstore "github.com/dalemusser/caseroom/internal/app/store/users"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/app/system/registry"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	reg        *registry.Registry
	members    *membershipstore.Store
	auditStore *audit.Store
	fx         *testutil.Fixtures
}

func newEnv(t *testing.T, db *mongo.Database) *env {
	t.Helper()

	members := membershipstore.New(db)
	auditStore := audit.New(db)
	reg := registry.New(
		roomstore.New(db),
		members,
		roomlinkstore.New(db),
		userstore.New(db),
		auditlog.New(auditStore, zap.NewNop()),
	)
	return &env{
		reg:        reg,
		members:    members,
		auditStore: auditStore,
		fx:         testutil.NewFixtures(t, db),
	}
}

func TestCreateRoom_MakesCreatorOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	actor := e.fx.CreateUser(ctx, "owner@firm.example")
	room, err := e.reg.CreateRoom(ctx, actor, "Acquisition", auditlog.Provenance{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}

	m, err := e.members.Get(ctx, room.ID, actor.ID)
	if err != nil {
		t.Fatalf("creator has no membership: %v", err)
	}
	if m.Role != string(authz.RoleOwner) {
		t.Errorf("creator role = %q, want owner", m.Role)
	}

	n, err := e.auditStore.CountByAction(ctx, audit.ActionRoomCreate, &room.ID)
	if err != nil {
		t.Fatalf("count audit failed: %v", err)
	}
	if n != 1 {
		t.Errorf("room.create audit entries = %d, want 1", n)
	}
}

func TestAuthorize_NonMemberGetsNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	outsider := e.fx.CreateUser(ctx, "outsider@firm.example")
	room := e.fx.CreateRoom(ctx, "Secret")

	// Real room, no membership.
	_, err := e.reg.Authorize(ctx, outsider.ID, room.ID, authz.ActionViewFile)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("real room: expected ErrNotFound, got %v", err)
	}

	// Nonexistent room must look identical.
	_, err = e.reg.Authorize(ctx, outsider.ID, primitive.NewObjectID(), authz.ActionViewFile)
	if !errors.Is(err, faults.ErrNotFound) {
		t.Errorf("missing room: expected ErrNotFound, got %v", err)
	}
}

func TestAuthorize_InsufficientRoleGetsForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	viewer := e.fx.CreateUser(ctx, "viewer@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, viewer.ID, string(authz.RoleViewer))

	_, err := e.reg.Authorize(ctx, viewer.ID, room.ID, authz.ActionImportFile)
	if !errors.Is(err, faults.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	if _, err := e.reg.Authorize(ctx, viewer.ID, room.ID, authz.ActionViewFile); err != nil {
		t.Errorf("viewer should be allowed to view, got %v", err)
	}
}

func TestUpsertMember_EditorCannotManage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	editor := e.fx.CreateUser(ctx, "editor@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, editor.ID, string(authz.RoleEditor))

	_, err := e.reg.UpsertMember(ctx, editor, room.ID, "new@firm.example", authz.RoleViewer, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestUpsertMember_AdminCannotMintOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	admin := e.fx.CreateUser(ctx, "admin@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, admin.ID, string(authz.RoleAdmin))

	_, err := e.reg.UpsertMember(ctx, admin, room.ID, "peer@firm.example", authz.RoleOwner, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	// The same admin can grant every lesser role.
	created, err := e.reg.UpsertMember(ctx, admin, room.ID, "peer@firm.example", authz.RoleEditor, auditlog.Provenance{})
	if err != nil {
		t.Fatalf("admin adding editor failed: %v", err)
	}
	if !created {
		t.Error("expected created=true for new member")
	}
}

func TestUpsertMember_CreatesUnknownUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	owner := e.fx.CreateUser(ctx, "owner@firm.example")
	room, err := e.reg.CreateRoom(ctx, owner, "Deal", auditlog.Provenance{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}

	created, err := e.reg.UpsertMember(ctx, owner, room.ID, "Invitee@Firm.Example", authz.RoleViewer, auditlog.Provenance{})
	if err != nil {
		t.Fatalf("upsert member failed: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}

	u, err := userstore.New(db).FindByEmail(ctx, "invitee@firm.example")
	if err != nil {
		t.Fatalf("invited user was not created: %v", err)
	}
	if _, err := e.members.Get(ctx, room.ID, u.ID); err != nil {
		t.Errorf("invited user has no membership: %v", err)
	}
}

func TestUpsertMember_LastOwnerCannotBeDemoted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	owner := e.fx.CreateUser(ctx, "owner@firm.example")
	room, err := e.reg.CreateRoom(ctx, owner, "Deal", auditlog.Provenance{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}

	_, err = e.reg.UpsertMember(ctx, owner, room.ID, owner.Email, authz.RoleAdmin, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrConflict) {
		t.Errorf("expected ErrConflict demoting last owner, got %v", err)
	}

	// With a second owner in place, the demotion goes through.
	if _, err := e.reg.UpsertMember(ctx, owner, room.ID, "second@firm.example", authz.RoleOwner, auditlog.Provenance{}); err != nil {
		t.Fatalf("adding second owner failed: %v", err)
	}
	if _, err := e.reg.UpsertMember(ctx, owner, room.ID, owner.Email, authz.RoleAdmin, auditlog.Provenance{}); err != nil {
		t.Errorf("demotion with a surviving owner failed: %v", err)
	}
}

func TestRemoveMember_LastOwnerRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	owner := e.fx.CreateUser(ctx, "owner@firm.example")
	room, err := e.reg.CreateRoom(ctx, owner, "Deal", auditlog.Provenance{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}

	err = e.reg.RemoveMember(ctx, owner, room.ID, owner.Email, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrConflict) {
		t.Errorf("expected ErrConflict removing last owner, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	owner := e.fx.CreateUser(ctx, "owner@firm.example")
	room, err := e.reg.CreateRoom(ctx, owner, "Deal", auditlog.Provenance{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if _, err := e.reg.UpsertMember(ctx, owner, room.ID, "viewer@firm.example", authz.RoleViewer, auditlog.Provenance{}); err != nil {
		t.Fatalf("add member failed: %v", err)
	}

	if err := e.reg.RemoveMember(ctx, owner, room.ID, "viewer@firm.example", auditlog.Provenance{}); err != nil {
		t.Fatalf("remove member failed: %v", err)
	}

	members, err := e.reg.ListMembers(ctx, owner.ID, room.ID)
	if err != nil {
		t.Fatalf("list members failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("members = %d, want 1", len(members))
	}

	n, err := e.auditStore.CountByAction(ctx, audit.ActionRoomRemoveMember, &room.ID)
	if err != nil {
		t.Fatalf("count audit failed: %v", err)
	}
	if n != 1 {
		t.Errorf("remove_member audit entries = %d, want 1", n)
	}
}

func TestDeleteRoom_CleansUpMembershipsAndLinks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	owner := e.fx.CreateUser(ctx, "owner@firm.example")
	room, err := e.reg.CreateRoom(ctx, owner, "Deal", auditlog.Provenance{})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if _, err := e.reg.UpsertMember(ctx, owner, room.ID, "viewer@firm.example", authz.RoleViewer, auditlog.Provenance{}); err != nil {
		t.Fatalf("add member failed: %v", err)
	}
	links := roomlinkstore.New(db)
	if _, err := links.Link(ctx, room.ID, primitive.NewObjectID()); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	if err := e.reg.DeleteRoom(ctx, owner, room.ID, auditlog.Provenance{}); err != nil {
		t.Fatalf("delete room failed: %v", err)
	}

	remaining, err := e.members.ListByRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list memberships failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("memberships = %d, want 0", len(remaining))
	}
	remainingLinks, err := links.ListByRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("list links failed: %v", err)
	}
	if len(remainingLinks) != 0 {
		t.Errorf("links = %d, want 0", len(remainingLinks))
	}
}

func TestDeleteRoom_AdminForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := newEnv(t, db)

	admin := e.fx.CreateUser(ctx, "admin@firm.example")
	room := e.fx.CreateRoom(ctx, "Deal")
	e.fx.AddMembership(ctx, room.ID, admin.ID, string(authz.RoleAdmin))

	err := e.reg.DeleteRoom(ctx, admin, room.ID, auditlog.Provenance{})
	if !errors.Is(err, faults.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}
