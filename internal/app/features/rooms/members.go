// internal/app/features/rooms/members.go
package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeListMembers handles GET /api/rooms/{roomID}/members.
func (h *Handler) ServeListMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	roomID, err := shared.PathObjectID(chi.URLParam(r, "roomID"))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members, err := h.Registry.ListMembers(ctx, actor.ID, roomID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, memberResponse{
			Email:    m.Email,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt,
		})
	}
	httpjson.JSON(w, http.StatusOK, resp)
}

// ServeUpsertMember handles PUT /api/rooms/{roomID}/members. It adds a
// member or changes an existing member's role.
func (h *Handler) ServeUpsertMember(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	roomID, err := shared.PathObjectID(chi.URLParam(r, "roomID"))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	var req upsertMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		httpjson.Error(w, http.StatusBadRequest, "email is required")
		return
	}
	role, ok := authz.ParseRole(req.Role)
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "unknown role "+req.Role)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Registry.UpsertMember(ctx, actor, roomID, email, role, auditlog.FromRequest(r))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpjson.JSON(w, status, memberResponse{Email: email, Role: string(role)})
}

// ServeRemoveMember handles DELETE /api/rooms/{roomID}/members.
func (h *Handler) ServeRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	roomID, err := shared.PathObjectID(chi.URLParam(r, "roomID"))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	var req removeMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		httpjson.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Registry.RemoveMember(ctx, actor, roomID, email, auditlog.FromRequest(r)); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	httpjson.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
