// internal/app/features/imports/handler.go
package imports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"github.com/dalemusser/caseroom/internal/app/system/importer"
	"github.com/dalemusser/caseroom/internal/app/system/limits"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the Drive import endpoint.
type Handler struct {
	Log      *zap.Logger
	Importer *importer.Importer
}

func NewHandler(imp *importer.Importer, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Importer: imp}
}

// importRequest is the body for POST /api/import.
type importRequest struct {
	DriveFileIDs []string `json:"drive_file_ids"`
	RoomID       string   `json:"room_id,omitempty"`
}

// importResult is the per-file outcome.
type importResult struct {
	DriveFileID string `json:"drive_file_id"`
	Status      string `json:"status"` // imported | duplicate | error
	FileID      string `json:"file_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

const maxFilesPerImport = 25

// ServeImport handles POST /api/import. Files are imported one at a
// time; a failure on one file is reported in its result row and does
// not stop the rest. Request-level failures (unknown room, missing
// membership, revoked credential) abort the whole batch.
func (h *Handler) ServeImport(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxImportRequestSize)

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.DriveFileIDs) == 0 {
		httpjson.Error(w, http.StatusBadRequest, "drive_file_ids is required")
		return
	}
	if len(req.DriveFileIDs) > maxFilesPerImport {
		httpjson.Error(w, http.StatusBadRequest, "too many files in one request")
		return
	}

	var roomID *primitive.ObjectID
	if req.RoomID != "" {
		id, err := shared.PathObjectID(req.RoomID)
		if err != nil {
			httpjson.Fault(w, h.Log, err)
			return
		}
		roomID = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	prov := auditlog.FromRequest(r)
	results := make([]importResult, 0, len(req.DriveFileIDs))

	for _, fileID := range req.DriveFileIDs {
		res, err := h.Importer.ImportOne(ctx, actor, roomID, fileID, prov)
		if err != nil {
			// A revoked credential or a room the actor cannot use
			// fails identically for every file, so stop early.
			if errors.Is(err, faults.ErrReauthRequired) || errors.Is(err, faults.ErrForbidden) {
				httpjson.Fault(w, h.Log, err)
				return
			}
			results = append(results, importResult{
				DriveFileID: fileID,
				Status:      "error",
				Error:       faultMessage(err),
			})
			continue
		}
		status := "imported"
		if res.Outcome == importer.OutcomeDuplicate {
			status = "duplicate"
		}
		results = append(results, importResult{
			DriveFileID: fileID,
			Status:      status,
			FileID:      res.Content.ID.Hex(),
		})
	}

	httpjson.JSON(w, http.StatusOK, map[string]any{"results": results})
}

// faultMessage gives a stable short string per fault for result rows.
func faultMessage(err error) string {
	switch {
	case errors.Is(err, faults.ErrNotFound):
		return "file not found"
	case errors.Is(err, faults.ErrStorageFailure):
		return "storage unavailable"
	case errors.Is(err, faults.ErrUpstreamUnavailable):
		return "drive unavailable"
	default:
		return "import failed"
	}
}
