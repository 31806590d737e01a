// internal/app/features/drivefiles/handler.go
package drivefiles

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/system/drive"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"github.com/dalemusser/caseroom/internal/app/system/importer"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/dalemusser/caseroom/internal/app/system/vault"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"go.uber.org/zap"
)

// Handler lets a signed-in user browse their Drive before importing.
type Handler struct {
	Log   *zap.Logger
	Vault *vault.Vault
	Drive *drive.Client
}

func NewHandler(v *vault.Vault, d *drive.Client, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, Vault: v, Drive: d}
}

type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size,omitempty"`
}

type listResponse struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// ServeList handles GET /api/drive/files. Query parameters: q (Drive
// query), page_token, page_size.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	query := r.URL.Query().Get("q")
	pageToken := r.URL.Query().Get("page_token")
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	token, err := h.Vault.GetValidAccessToken(ctx, actor.ID, importer.Provider)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}

	list, err := h.Drive.List(ctx, token, query, pageToken, pageSize)
	if errors.Is(err, drive.ErrUnauthorized) {
		token, err = h.Vault.ForceRefresh(ctx, actor.ID, importer.Provider)
		if err != nil {
			httpjson.Fault(w, h.Log, err)
			return
		}
		list, err = h.Drive.List(ctx, token, query, pageToken, pageSize)
		if errors.Is(err, drive.ErrUnauthorized) {
			err = fmt.Errorf("drive rejected refreshed token: %w", faults.ErrReauthRequired)
		}
	}
	if err != nil {
		if errors.Is(err, drive.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", faults.ErrUpstreamUnavailable, err)
		}
		httpjson.Fault(w, h.Log, err)
		return
	}

	resp := listResponse{
		Files:         make([]driveFile, 0, len(list.Files)),
		NextPageToken: list.NextPageToken,
	}
	for _, f := range list.Files {
		resp.Files = append(resp.Files, driveFile{
			ID:       f.ID,
			Name:     f.Name,
			MimeType: f.MimeType,
			Size:     f.SizeBytes,
		})
	}
	httpjson.JSON(w, http.StatusOK, resp)
}
