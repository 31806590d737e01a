// Package importer runs the multi-step import workflow: authorize,
// obtain a provider token, fetch the file from the external source,
// ingest with deduplication, and optionally link the content into a
// room. It is the only component that reads credentials and the only
// one allowed to reclassify a lower component's error (a second
// Unauthorized from the source, after one forced refresh, becomes
// ReauthRequired).
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/caseroom/internal/app/store/audit"
	contentstore "github.com/dalemusser/caseroom/internal/app/store/contents"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/authz"
	"github.com/dalemusser/caseroom/internal/app/system/drive"
	"github.com/dalemusser/caseroom/internal/app/system/registry"
	"github.com/dalemusser/caseroom/internal/app/system/vault"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Provider is the credential provider key for the external source.
const Provider = "google"

// Outcome of a single import.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
)

// Result describes one imported file.
type Result struct {
	Content models.ContentObject
	Outcome string
	Linked  bool
}

type Importer struct {
	vault    *vault.Vault
	drive    *drive.Client
	contents *contentstore.Store
	links    *roomlinkstore.Store
	registry *registry.Registry
	audit    *auditlog.Logger
	log      *zap.Logger
}

func New(v *vault.Vault, d *drive.Client, contents *contentstore.Store, links *roomlinkstore.Store, reg *registry.Registry, auditLog *auditlog.Logger, logger *zap.Logger) *Importer {
	return &Importer{
		vault:    v,
		drive:    d,
		contents: contents,
		links:    links,
		registry: reg,
		audit:    auditLog,
		log:      logger,
	}
}

// ImportOne imports a single external file for the actor and, when a
// room is given, links it there.
//
// The room permission check runs before anything touches the external
// source, so unauthorized actors learn nothing about the file. If the
// source rejects the token, the workflow forces exactly one refresh
// and retries once; a second rejection surfaces as ReauthRequired.
//
// If ingest succeeds but the room link fails, the content object stays
// in the actor's personal library; linking is idempotent, so callers
// can simply retry it.
func (i *Importer) ImportOne(ctx context.Context, actor models.User, roomID *primitive.ObjectID, externalFileID string, prov auditlog.Provenance) (Result, error) {
	if roomID != nil {
		if _, err := i.registry.Authorize(ctx, actor.ID, *roomID, authz.ActionImportFile); err != nil {
			return Result{}, err
		}
	}

	token, err := i.vault.GetValidAccessToken(ctx, actor.ID, Provider)
	if err != nil {
		return Result{}, err
	}

	meta, data, err := i.fetch(ctx, actor.ID, token, externalFileID)
	if err != nil {
		return Result{}, err
	}

	name := safeFilename(meta.Name)
	if name == "" {
		name = externalFileID
	}
	content, created, err := i.contents.Ingest(ctx, actor.ID, data, name, meta.MimeType, externalFileID)
	if err != nil {
		return Result{}, err
	}

	outcome := OutcomeDuplicate
	if created {
		outcome = OutcomeCreated
	}
	result := Result{Content: content, Outcome: outcome}

	if roomID != nil {
		linked, err := i.links.Link(ctx, *roomID, content.ID)
		if err != nil {
			// Content is persisted and reusable; only the link failed.
			i.recordImport(ctx, actor, roomID, content, outcome, prov)
			return result, fmt.Errorf("link to room: %w", err)
		}
		result.Linked = linked
	}

	i.recordImport(ctx, actor, roomID, content, outcome, prov)
	return result, nil
}

// fetch pulls metadata and bytes, retrying exactly once on a rejected
// token after forcing a refresh.
func (i *Importer) fetch(ctx context.Context, actorID primitive.ObjectID, token, fileID string) (drive.Meta, []byte, error) {
	meta, data, err := i.fetchOnce(ctx, token, fileID)
	if !errors.Is(err, drive.ErrUnauthorized) {
		return meta, data, mapDriveErr(err)
	}

	i.log.Debug("drive rejected token, forcing refresh",
		zap.String("file_id", fileID),
	)
	token, err = i.vault.ForceRefresh(ctx, actorID, Provider)
	if err != nil {
		return drive.Meta{}, nil, err
	}
	meta, data, err = i.fetchOnce(ctx, token, fileID)
	if errors.Is(err, drive.ErrUnauthorized) {
		return drive.Meta{}, nil, fmt.Errorf("source rejected refreshed token: %w", faults.ErrReauthRequired)
	}
	return meta, data, mapDriveErr(err)
}

func (i *Importer) fetchOnce(ctx context.Context, token, fileID string) (drive.Meta, []byte, error) {
	meta, err := i.drive.Metadata(ctx, token, fileID)
	if err != nil {
		return drive.Meta{}, nil, err
	}
	data, err := i.drive.Download(ctx, token, fileID)
	if err != nil {
		return drive.Meta{}, nil, err
	}
	return meta, data, nil
}

// mapDriveErr translates source errors into the shared taxonomy.
func mapDriveErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, drive.ErrNotFound):
		return fmt.Errorf("external file: %w", faults.ErrNotFound)
	case errors.Is(err, drive.ErrUnavailable):
		return fmt.Errorf("%w: %v", faults.ErrUpstreamUnavailable, err)
	default:
		return err
	}
}

// recordImport emits the single file.import audit entry. Created and
// duplicate imports both get one, with the outcome as an attribute.
func (i *Importer) recordImport(ctx context.Context, actor models.User, roomID *primitive.ObjectID, content models.ContentObject, outcome string, prov auditlog.Provenance) {
	i.audit.Record(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionFileImport,
		ObjectType: audit.ObjectFile,
		ObjectID:   content.ID.Hex(),
		RoomID:     roomID,
		IP:         prov.IP,
		UserAgent:  prov.UserAgent,
		Details: map[string]string{
			"outcome":       outcome,
			"drive_file_id": content.DriveFileID,
			"sha256":        content.SHA256,
		},
	})
}

// safeFilename strips path separators from a provider-supplied name.
func safeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, `\`, "_")
	return strings.TrimSpace(name)
}
