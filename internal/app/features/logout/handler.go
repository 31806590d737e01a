package logout

import (
	"net/http"

	"github.com/dalemusser/caseroom/internal/app/system/auth"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler clears the session.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// Serve handles POST /auth/logout.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(w, r); err != nil {
		h.Log.Warn("failed to clear session", zap.Error(err))
	}
	httpjson.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
