// internal/app/features/rooms/handler.go
package rooms

import (
	contentstore "github.com/dalemusser/caseroom/internal/app/store/contents"
	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	"github.com/dalemusser/caseroom/internal/app/system/auditlog"
	"github.com/dalemusser/caseroom/internal/app/system/registry"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Handler serves the room API: rooms, members, and the files linked
// into a room.
type Handler struct {
	Log      *zap.Logger
	Registry *registry.Registry
	Contents *contentstore.Store
	Links    *roomlinkstore.Store
	AuditLog *auditlog.Logger

	sanitize *bluemonday.Policy
}

func NewHandler(
	reg *registry.Registry,
	contents *contentstore.Store,
	links *roomlinkstore.Store,
	auditLog *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:      logger,
		Registry: reg,
		Contents: contents,
		Links:    links,
		AuditLog: auditLog,
		sanitize: bluemonday.StrictPolicy(),
	}
}
