package queue

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/middleware"
	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/queue"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/httputil"
)

type Handler struct {
	service *queue.Service
}

func NewHandler(service *queue.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Admit(c *gin.Context) {
	var req model.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	entry, err := h.service.Admit(c.Request.Context(), &req, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, entry)
}

func (h *Handler) Advance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid queue entry ID"))
		return
	}

	var req model.AdvanceQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	entry, err := h.service.Advance(c.Request.Context(), id, req.Status, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, entry)
}

func (h *Handler) Transfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid queue entry ID"))
		return
	}

	var req model.TransferQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	entry, err := h.service.Transfer(c.Request.Context(), id, &req, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, entry)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.QueueFilters{}

	if v := c.Query("branch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.InvalidInput("invalid branch ID"))
			return
		}
		filters.BranchID = id
	}
	if v := c.Query("service_point_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, apperrors.InvalidInput("invalid service point ID"))
			return
		}
		filters.ServicePointID = id
	}
	if v := c.Query("status"); v != "" {
		filters.Status = model.QueueEntryStatus(v)
	}

	entries, err := h.service.List(c.Request.Context(), filters, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, entries)
}
