// Package authz evaluates whether an actor may perform an action in a
// room.
//
// Roles form a total order (owner > admin > editor > viewer) and every
// action has a minimum required role, so a permission check is a single
// ordinal comparison against the threshold table. The engine is a pure
// function of the actor's membership; it performs no I/O.
//
// Callers that look up the actor's membership must treat "no membership"
// and "room does not exist" identically (both become a not-found
// outcome), so that room existence is never inferable from an
// unauthorized probe.
package authz

import "strings"

// Role is a capability level within one room.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// rank orders roles for threshold comparison. Higher outranks lower.
var rank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := rank[r]
	return r, ok
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r meets or exceeds min in the role order.
// Unknown roles never satisfy any threshold.
func (r Role) AtLeast(min Role) bool {
	rr, ok := rank[r]
	if !ok {
		return false
	}
	mr, ok := rank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

// Action is something an actor can attempt in a room.
type Action string

const (
	ActionViewFile     Action = "file.view"
	ActionListMembers  Action = "room.list_members"
	ActionImportFile   Action = "file.import"
	ActionLinkFile     Action = "file.link"
	ActionDeleteOwn    Action = "file.delete_own"
	ActionDeleteAny    Action = "file.delete_any"
	ActionManageMember Action = "room.manage_member"
	ActionManageOwner  Action = "room.manage_owner"
	ActionRemoveMember Action = "room.remove_member"
	ActionDeleteRoom   Action = "room.delete"
)

// thresholds maps each action to the minimum role that may perform it.
var thresholds = map[Action]Role{
	ActionViewFile:     RoleViewer,
	ActionListMembers:  RoleViewer,
	ActionImportFile:   RoleEditor,
	ActionLinkFile:     RoleEditor,
	ActionDeleteOwn:    RoleEditor,
	ActionDeleteAny:    RoleAdmin,
	ActionManageMember: RoleAdmin,
	ActionManageOwner:  RoleOwner,
	ActionRemoveMember: RoleOwner,
	ActionDeleteRoom:   RoleOwner,
}

// Threshold returns the minimum role required for an action. Unknown
// actions require owner, failing closed.
func Threshold(a Action) Role {
	if min, ok := thresholds[a]; ok {
		return min
	}
	return RoleOwner
}

// Allowed reports whether a member with the given role may perform the
// action.
func Allowed(role Role, a Action) bool {
	return role.AtLeast(Threshold(a))
}
