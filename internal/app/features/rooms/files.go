// internal/app/features/rooms/files.go
package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/store/audit"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeListFiles handles GET /api/rooms/{roomID}/files.
func (h *Handler) ServeListFiles(w http.ResponseWriter, r *http.Request) {
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

	if _, err := h.Registry.Authorize(ctx, actor.ID, roomID, authz.ActionViewFile); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	links, err := h.Links.ListByRoom(ctx, roomID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ContentID)
	}
	contents, err := h.Contents.GetMany(ctx, ids)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	resp := make([]fileResponse, 0, len(links))
	for _, l := range links {
		c, ok := contents[l.ContentID]
		if !ok {
			continue
		}
		resp = append(resp, toFileResponse(c))
	}
	httpjson.JSON(w, http.StatusOK, resp)
}

// ServeLinkFile handles POST /api/rooms/{roomID}/files. It links one of
// the actor's existing files into the room; linking the same file twice
// is a no-op.
func (h *Handler) ServeLinkFile(w http.ResponseWriter, r *http.Request) {
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

	var req linkFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	contentID, err := shared.PathObjectID(req.ContentID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Registry.Authorize(ctx, actor.ID, roomID, authz.ActionLinkFile); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	content, err := h.Contents.GetByID(ctx, contentID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	// Only the file's owner may share it into a room; other members'
	// files are invisible here.
	if content.OwnerID != actor.ID {
		httpjson.Fault(w, h.Log, fmt.Errorf("content %s: %w", contentID.Hex(), faults.ErrNotFound))
		return
	}

	created, err := h.Links.Link(ctx, roomID, contentID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	if created {
		prov := auditlog.FromRequest(r)
		h.AuditLog.Record(ctx, audit.Entry{
			ActorID:    &actor.ID,
			Action:     audit.ActionRoomLinkFile,
			ObjectType: audit.ObjectFile,
			ObjectID:   contentID.Hex(),
			RoomID:     &roomID,
			IP:         prov.IP,
			UserAgent:  prov.UserAgent,
		})
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpjson.JSON(w, status, toFileResponse(content))
}

// ServePreviewFile handles GET /api/rooms/{roomID}/files/{contentID}.
// It streams the file bytes to any member of the room.
func (h *Handler) ServePreviewFile(w http.ResponseWriter, r *http.Request) {
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
	contentID, err := shared.PathObjectID(chi.URLParam(r, "contentID"))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if _, err := h.Registry.Authorize(ctx, actor.ID, roomID, authz.ActionViewFile); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	linked, err := h.Links.Exists(ctx, roomID, contentID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	if !linked {
		httpjson.Fault(w, h.Log, fmt.Errorf("file %s in room: %w", contentID.Hex(), faults.ErrNotFound))
		return
	}

	content, err := h.Contents.GetByID(ctx, contentID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	data, err := h.Contents.ReadBytes(ctx, content)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	prov := auditlog.FromRequest(r)
	h.AuditLog.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoomPreviewFile,
		ObjectType: audit.ObjectFile,
		ObjectID:   contentID.Hex(),
		RoomID:     &roomID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
	})

	mediaType := content.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+content.Name+`"`)
	_, _ = w.Write(data)
}

// ServeUnlinkFile handles DELETE /api/rooms/{roomID}/files/{contentID}.
// It removes the file from the room without touching the underlying
// content object. Editors may remove their own files; removing someone
// else's requires admin.
func (h *Handler) ServeUnlinkFile(w http.ResponseWriter, r *http.Request) {
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
	contentID, err := shared.PathObjectID(chi.URLParam(r, "contentID"))
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	linked, err := h.Links.Exists(ctx, roomID, contentID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	content, cerr := h.Contents.GetByID(ctx, contentID)
	action := authz.ActionDeleteAny
	if cerr == nil && content.OwnerID == actor.ID {
		action = authz.ActionDeleteOwn
	}
	if _, err := h.Registry.Authorize(ctx, actor.ID, roomID, action); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	if !linked {
		httpjson.Fault(w, h.Log, fmt.Errorf("file %s in room: %w", contentID.Hex(), faults.ErrNotFound))
		return
	}

	if _, err := h.Links.Unlink(ctx, roomID, contentID); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	prov := auditlog.FromRequest(r)
	h.AuditLog.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionRoomDeleteFile,
		ObjectType: audit.ObjectFile,
		ObjectID:   contentID.Hex(),
		RoomID:     &roomID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
	})
	httpjson.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func toFileResponse(c models.ContentObject) fileResponse {
	return fileResponse{
		ID:          c.ID.Hex(),
		Name:        c.Name,
		MediaType:   c.MediaType,
		SizeBytes:   c.SizeBytes,
		SHA256:      c.SHA256,
		DriveFileID: c.DriveFileID,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
	}
}
