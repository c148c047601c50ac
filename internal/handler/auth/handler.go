package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/auth"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/httputil"
)

type Handler struct {
	service auth.Service
}

func NewHandler(service auth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.InvalidInput("invalid request: %v", err))
		return
	}

	token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, token)
}
