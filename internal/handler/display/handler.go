package display

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/service/callout"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/httputil"
)

// Handler serves the public waiting-room display feed. Screens poll this
// endpoint; page rotation happens server-side so every screen in a branch
// shows the same page at the same time.
type Handler struct {
	poller *callout.Poller
}

func NewHandler(poller *callout.Poller) *Handler {
	return &Handler{poller: poller}
}

func (h *Handler) GetDisplay(c *gin.Context) {
	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid branch ID"))
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, h.poller.DisplayState(branchID))
}
