// internal/app/features/files/handler.go
package files

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/store/audit"
	contentstore "github.com/dalemusser/caseroom/internal/app/store/contents"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the personal file library. Room-scoped file access
// lives in the rooms feature; everything here is owner-only.
type Handler struct {
	Log      *zap.Logger
	Contents *contentstore.Store
	Links    *roomlinkstore.Store
	AuditLog *auditlog.Logger
}

func NewHandler(contents *contentstore.Store, links *roomlinkstore.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Contents: contents,
		Links:    links,
		AuditLog: auditLog,
	}
}

type fileResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MediaType   string `json:"media_type"`
	SizeBytes   int64  `json:"size_bytes"`
	SHA256      string `json:"sha256"`
	DriveFileID string `json:"drive_file_id,omitempty"`
	CreatedAt   string `json:"created_at"`
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

// ServeList handles GET /api/files.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	contents, err := h.Contents.ListByOwner(ctx, actor.ID)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	resp := make([]fileResponse, 0, len(contents))
	for _, c := range contents {
		resp = append(resp, toFileResponse(c))
	}
	httpjson.JSON(w, http.StatusOK, resp)
}

// ownedContent loads a content object and hides other owners' files
// behind not-found.
func (h *Handler) ownedContent(ctx context.Context, r *http.Request, actor models.User) (models.ContentObject, error) {
	contentID, err := shared.PathObjectID(chi.URLParam(r, "contentID"))
	if err != nil {
		return models.ContentObject{}, err
	}
	content, err := h.Contents.GetByID(ctx, contentID)
	if err != nil {
		return models.ContentObject{}, err
	}
	if content.OwnerID != actor.ID {
		return models.ContentObject{}, fmt.Errorf("content %s: %w", contentID.Hex(), faults.ErrNotFound)
	}
	return content, nil
}

// ServeDownload handles GET /api/files/{contentID}.
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	content, err := h.ownedContent(ctx, r, actor)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	data, err := h.Contents.ReadBytes(ctx, content)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	mediaType := content.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+content.Name+`"`)
	_, _ = w.Write(data)
}

// ServeDelete handles DELETE /api/files/{contentID}. It removes the
// file from every room it is linked in, then deletes the metadata row
// and, best effort, the blob.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	content, err := h.ownedContent(ctx, r, actor)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	if _, err := h.Links.DeleteByContent(ctx, content.ID); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	if err := h.Contents.Delete(ctx, content); err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	prov := auditlog.FromRequest(r)
	h.AuditLog.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionFileDelete,
		ObjectType: audit.ObjectFile,
		ObjectID:   content.ID.Hex(),
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
		Details:    map[string]string{"sha256": content.SHA256},
	})
	httpjson.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
