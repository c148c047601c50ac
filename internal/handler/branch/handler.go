package branch

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/middleware"
	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/branch"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/httputil"
)

type Handler struct {
	service *branch.Service
}

func NewHandler(service *branch.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.service.ListBranches(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, branches)
}

func (h *Handler) GetBranch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid branch ID"))
		return
	}

	b, err := h.service.GetBranch(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, b)
}

func (h *Handler) ListServices(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid branch ID"))
		return
	}

	services, err := h.service.ListServices(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, services)
}

func (h *Handler) ListSchedules(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid service ID"))
		return
	}

	schedules, err := h.service.ListSchedules(c.Request.Context(), serviceID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, schedules)
}

func (h *Handler) ListServicePoints(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid branch ID"))
		return
	}

	points, err := h.service.ListServicePoints(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, points)
}

// UpdatePolicy patches a branch's booking policy. Admin only, enforced both
// in the route group and in the service.
func (h *Handler) UpdatePolicy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid branch ID"))
		return
	}

	var req model.UpdateBranchPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	b, err := h.service.UpdatePolicy(c.Request.Context(), id, &req, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, b)
}
