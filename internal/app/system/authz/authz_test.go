package authz_test

import (
	"testing"

	"github.com/dalemusser/caseroom/internal/app/system/authz"
)

var rolesAscending = []authz.Role{
	authz.RoleViewer,
	authz.RoleEditor,
	authz.RoleAdmin,
	authz.RoleOwner,
}

var allActions = []authz.Action{
	authz.ActionViewFile,
	authz.ActionListMembers,
	authz.ActionImportFile,
	authz.ActionLinkFile,
	authz.ActionDeleteOwn,
	authz.ActionDeleteAny,
	authz.ActionManageMember,
	authz.ActionManageOwner,
	authz.ActionRemoveMember,
	authz.ActionDeleteRoom,
}

func TestAllowed_MonotonicInRoleOrder(t *testing.T) {
	// If a role permits an action, every higher role must permit it too.
	for _, action := range allActions {
		permitted := false
		for _, role := range rolesAscending {
			allowed := authz.Allowed(role, action)
			if permitted && !allowed {
				t.Errorf("action %q: role %q denied after a lower role was allowed", action, role)
			}
			if allowed {
				permitted = true
			}
		}
		if !permitted {
			t.Errorf("action %q: no role permits it", action)
		}
	}
}

func TestAllowed_Thresholds(t *testing.T) {
	cases := []struct {
		role   authz.Role
		action authz.Action
		want   bool
	}{
		{authz.RoleViewer, authz.ActionViewFile, true},
		{authz.RoleViewer, authz.ActionListMembers, true},
		{authz.RoleViewer, authz.ActionImportFile, false},
		{authz.RoleEditor, authz.ActionImportFile, true},
		{authz.RoleEditor, authz.ActionDeleteOwn, true},
		{authz.RoleEditor, authz.ActionDeleteAny, false},
		{authz.RoleEditor, authz.ActionManageMember, false},
		{authz.RoleAdmin, authz.ActionDeleteAny, true},
		{authz.RoleAdmin, authz.ActionManageMember, true},
		{authz.RoleAdmin, authz.ActionManageOwner, false},
		{authz.RoleAdmin, authz.ActionRemoveMember, false},
		{authz.RoleOwner, authz.ActionManageOwner, true},
		{authz.RoleOwner, authz.ActionRemoveMember, true},
		{authz.RoleOwner, authz.ActionDeleteRoom, true},
	}
	for _, tc := range cases {
		if got := authz.Allowed(tc.role, tc.action); got != tc.want {
			t.Errorf("Allowed(%q, %q): got %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := authz.ParseRole("  Editor "); !ok || r != authz.RoleEditor {
		t.Errorf("ParseRole(\"  Editor \"): got %q, %v", r, ok)
	}
	if _, ok := authz.ParseRole("superuser"); ok {
		t.Error("ParseRole(\"superuser\") accepted an unknown role")
	}
}

func TestAtLeast_UnknownRoleFailsClosed(t *testing.T) {
	if authz.Role("root").AtLeast(authz.RoleViewer) {
		t.Error("unknown role satisfied the viewer threshold")
	}
	if authz.Allowed(authz.Role(""), authz.ActionViewFile) {
		t.Error("empty role was allowed to view files")
	}
}
