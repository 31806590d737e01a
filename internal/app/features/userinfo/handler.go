package userinfo

import (
	"net/http"

	"github.com/dalemusser/caseroom/internal/app/features/shared"
	"github.com/dalemusser/caseroom/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler reports who the current session belongs to.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ServeMe handles GET /auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, err := shared.CurrentUser(r)
	if err != nil {
		httpjson.Fault(w, h.Log, err)
		return
	}
	httpjson.JSON(w, http.StatusOK, meResponse{
		ID:    user.ID.Hex(),
		Email: user.Email,
	})
}
