// internal/app/features/rooms/rooms.go
package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeCreate handles POST /api/rooms.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(h.sanitize.Sanitize(req.Name))
	if name == "" {
		httpjson.Error(w, http.StatusBadRequest, "room name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	room, err := h.Registry.CreateRoom(ctx, actor, name, auditlog.FromRequest(r))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	httpjson.JSON(w, http.StatusCreated, roomResponse{
		ID:        room.ID.Hex(),
		Name:      room.Name,
		Role:      "owner",
		CreatedAt: room.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// ServeList handles GET /api/rooms.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rooms, err := h.Registry.ListRooms(ctx, actor.ID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	resp := make([]roomResponse, 0, len(rooms))
	for _, rr := range rooms {
		resp = append(resp, roomResponse{
			ID:        rr.Room.ID.Hex(),
			Name:      rr.Room.Name,
			Role:      string(rr.Role),
			CreatedAt: rr.Room.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	httpjson.JSON(w, http.StatusOK, resp)
}

// ServeDelete handles DELETE /api/rooms/{roomID}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Registry.DeleteRoom(ctx, actor, roomID, auditlog.FromRequest(r)); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	httpjson.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
