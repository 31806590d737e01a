// Package registry owns the room/user/role relation and its mutation
// rules.
//
// All role checks go through the authorization engine. An actor with no
// membership in a room gets the same not-found outcome whether or not
// the room exists, so room existence is never disclosed to outsiders.
// Every mutation appends one audit entry after the row has committed,
// never before.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/caseroom/internal/app/store/audit"
	membershipstore "github.com/dalemusser/caseroom/internal/app/store/memberships"
	roomstore "github.com/dalemusser/caseroom/internal/app/store/rooms"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	userstore "github.com/dalemusser/caseroom/internal/app/store/users"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Registry struct {
	rooms   *roomstore.Store
	members *membershipstore.Store
	links   *roomlinkstore.Store
	users   *userstore.Store
	audit   *auditlog.Logger
}

func New(rooms *roomstore.Store, members *membershipstore.Store, links *roomlinkstore.Store, users *userstore.Store, auditLog *auditlog.Logger) *Registry {
	return &Registry{
		rooms:   rooms,
		members: members,
		links:   links,
		users:   users,
		audit:   auditLog,
	}
}

// Authorize checks whether the actor may perform the action in the
// room and returns their membership when allowed.
//
// A missing membership yields ErrNotFound, never ErrForbidden: from the
// outside, a room the actor cannot see does not exist. A present
// membership with an insufficient role yields ErrForbidden.
func (g *Registry) Authorize(ctx context.Context, actorID, roomID primitive.ObjectID, action authz.Action) (models.Membership, error) {
	m, err := g.members.Get(ctx, roomID, actorID)
	if err != nil {
		return models.Membership{}, fmt.Errorf("room %s: %w", roomID.Hex(), faults.ErrNotFound)
	}
	if !authz.Allowed(authz.Role(m.Role), action) {
		return models.Membership{}, fmt.Errorf("action %s: %w", action, faults.ErrForbidden)
	}
	return m, nil
}

// CreateRoom creates a room and makes the creator its owner.
func (g *Registry) CreateRoom(ctx context.Context, actor models.User, name string, prov auditlog.Provenance) (models.Room, error) {
	room, err := g.rooms.Create(ctx, name)
	if err != nil {
		return models.Room{}, err
	}
	if _, err := g.members.Upsert(ctx, room.ID, actor.ID, authz.RoleOwner); err != nil {
		return models.Room{}, err
	}

	g.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoomCreate,
		ObjectType: audit.ObjectRoom,
		ObjectID:   room.ID.Hex(),
		RoomID:     &room.ID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
	})
	return room, nil
}

// RoomWithRole pairs a room with the user's role in it.
type RoomWithRole struct {
	Room models.Room
	Role authz.Role
}

// ListRooms returns the rooms the user belongs to with their role in
// each.
func (g *Registry) ListRooms(ctx context.Context, userID primitive.ObjectID) ([]RoomWithRole, error) {
	memberships, err := g.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.RoomID)
	}
	rooms, err := g.rooms.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]RoomWithRole, 0, len(memberships))
	for _, m := range memberships {
		room, ok := rooms[m.RoomID]
		if !ok {
			continue
		}
		result = append(result, RoomWithRole{Room: room, Role: authz.Role(m.Role)})
	}
	return result, nil
}

// UpsertMember adds a user to a room or changes their role. The target
// user is created on the fly if this email has never signed in.
//
// Rules:
//   - the actor needs at least the admin role in the room;
//   - granting or holding the owner role is an owner-only operation, so
//     admins can neither mint peer owners nor touch an existing owner's
//     membership;
//   - demoting the last owner is rejected, rooms always keep >= 1 owner.
//
// Returns true when a new membership was created (as opposed to a role
// change).
func (g *Registry) UpsertMember(ctx context.Context, actor models.User, roomID primitive.ObjectID, targetEmail string, role authz.Role, prov auditlog.Provenance) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("invalid role %q: %w", role, faults.ErrConflict)
	}

	actorM, err := g.Authorize(ctx, actor.ID, roomID, authz.ActionManageMember)
	if err != nil {
		return false, err
	}
	actorRole := authz.Role(actorM.Role)

	if role == authz.RoleOwner && !actorRole.AtLeast(authz.Threshold(authz.ActionManageOwner)) {
		return false, fmt.Errorf("assign owner role: %w", faults.ErrForbidden)
	}

	target, err := g.users.UpsertByEmail(ctx, targetEmail)
	if err != nil {
		return false, err
	}

	if existing, err := g.members.Get(ctx, roomID, target.ID); err == nil {
		if authz.Role(existing.Role) == authz.RoleOwner {
			// Changing an existing owner's membership is owner-only.
			if !actorRole.AtLeast(authz.Threshold(authz.ActionManageOwner)) {
				return false, fmt.Errorf("change owner membership: %w", faults.ErrForbidden)
			}
			if role != authz.RoleOwner {
				owners, err := g.members.CountOwners(ctx, roomID)
				if err != nil {
					return false, err
				}
				if owners <= 1 {
					return false, fmt.Errorf("room must keep at least one owner: %w", faults.ErrConflict)
				}
			}
		}
	}

	created, err := g.members.Upsert(ctx, roomID, target.ID, role)
	if err != nil {
		return false, err
	}

	action := audit.ActionRoomUpdateMember
	if created {
		action = audit.ActionRoomAddMember
	}
	g.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     action,
		ObjectType: audit.ObjectUser,
		ObjectID:   target.ID.Hex(),
		RoomID:     &roomID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
		Details: map[string]string{
			"email": target.Email,
			"role":  string(role),
		},
	})
	return created, nil
}

// RemoveMember removes a user from a room. Owner-only; removing the
// room's last owner is rejected.
func (g *Registry) RemoveMember(ctx context.Context, actor models.User, roomID primitive.ObjectID, targetEmail string, prov auditlog.Provenance) error {
	if _, err := g.Authorize(ctx, actor.ID, roomID, authz.ActionRemoveMember); err != nil {
		return err
	}

	target, err := g.users.FindByEmail(ctx, targetEmail)
	if err != nil {
		return err
	}
	targetM, err := g.members.Get(ctx, roomID, target.ID)
	if err != nil {
		return err
	}

	if authz.Role(targetM.Role) == authz.RoleOwner {
		owners, err := g.members.CountOwners(ctx, roomID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return fmt.Errorf("room must keep at least one owner: %w", faults.ErrConflict)
		}
	}

	removed, err := g.members.Remove(ctx, roomID, target.ID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("membership: %w", faults.ErrNotFound)
	}

	g.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoomRemoveMember,
		ObjectType: audit.ObjectUser,
		ObjectID:   target.ID.Hex(),
		RoomID:     &roomID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
		Details:    map[string]string{"email": target.Email},
	})
	return nil
}

// Member is one row of a room's member list.
type Member struct {
	Email    string
	Role     authz.Role
	JoinedAt string
}

// ListMembers returns the room's members ordered by join time. Any
// membership suffices to view the list.
func (g *Registry) ListMembers(ctx context.Context, actorID, roomID primitive.ObjectID) ([]Member, error) {
	if _, err := g.Authorize(ctx, actorID, roomID, authz.ActionListMembers); err != nil {
		return nil, err
	}

	memberships, err := g.members.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	users, err := g.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		result = append(result, Member{
			Email:    u.Email,
			Role:     authz.Role(m.Role),
			JoinedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result, nil
}

// DeleteRoom removes a room with its memberships and links. Owner-only.
func (g *Registry) DeleteRoom(ctx context.Context, actor models.User, roomID primitive.ObjectID, prov auditlog.Provenance) error {
	if _, err := g.Authorize(ctx, actor.ID, roomID, authz.ActionDeleteRoom); err != nil {
		return err
	}

	if _, err := g.links.DeleteByRoom(ctx, roomID); err != nil {
		return err
	}
	if _, err := g.members.DeleteByRoom(ctx, roomID); err != nil {
		return err
	}
	if err := g.rooms.Delete(ctx, roomID); err != nil {
		return err
	}

	g.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoomDelete,
		ObjectType: audit.ObjectRoom,
		ObjectID:   roomID.Hex(),
		RoomID:     &roomID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
	})
	return nil
}
