package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/middleware"
	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/appointment"
	"github.com/qline/booking-api/internal/service/slot"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
	slots   *slot.Service
}

func NewHandler(service *appointment.Service, slots *slot.Service) *Handler {
	return &Handler{service: service, slots: slots}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	apt, err := h.service.Create(c.Request.Context(), &req, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID"))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

// TrackAppointment is the public status lookup by confirmation code.
func (h *Handler) TrackAppointment(c *gin.Context) {
	apt, err := h.service.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	apts, err := h.service.List(c.Request.Context(), filters, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apts)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID"))
		return
	}

	var req model.CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), id, req.Reason, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID"))
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), id, &req, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) GetRescheduleHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID"))
		return
	}

	history, err := h.service.GetRescheduleHistory(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, history)
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req model.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	apt, err := h.service.CheckIn(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) MarkCompleted(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID"))
		return
	}

	apt, err := h.service.MarkCompleted(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid appointment ID"))
		return
	}

	apt, err := h.service.MarkNoShow(c.Request.Context(), id, middleware.GetActor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

// GetAvailableSlots returns the bookable start times for a service on a
// given date (YYYY-MM-DD, branch-local).
func (h *Handler) GetAvailableSlots(c *gin.Context) {
	serviceID, err := uuid.Parse(c.Query("service_id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid service ID"))
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid date, expected YYYY-MM-DD"))
		return
	}

	slots, err := h.slots.AvailableSlots(c.Request.Context(), serviceID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"service_id": serviceID,
		"date":       c.Query("date"),
		"slots":      slots,
	})
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, error) {
	filters := &model.AppointmentFilters{}

	if v := c.Query("branch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid branch ID")
		}
		filters.BranchID = id
	}
	if v := c.Query("service_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid service ID")
		}
		filters.ServiceID = id
	}
	if v := c.Query("status"); v != "" {
		filters.Status = model.AppointmentStatus(v)
	}
	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid start_date, expected RFC3339")
		}
		filters.StartDate = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid end_date, expected RFC3339")
		}
		filters.EndDate = t
	}

	return filters, nil
}
