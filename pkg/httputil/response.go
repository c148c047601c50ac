package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qline/booking-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// statusByCode maps application error codes to HTTP statuses.
var statusByCode = map[errors.ErrorCode]int{
	errors.CodeInvalidInput:      http.StatusBadRequest,
	errors.CodeAmbiguousInput:    http.StatusBadRequest,
	errors.CodePolicyViolation:   http.StatusUnprocessableEntity,
	errors.CodeInvalidState:      http.StatusConflict,
	errors.CodeInvalidTransition: http.StatusConflict,
	errors.CodeConflict:          http.StatusConflict,
	errors.CodeNotFound:          http.StatusNotFound,
	errors.CodeUnauthorized:      http.StatusForbidden,
	errors.CodeInternal:          http.StatusInternalServerError,
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response derived from the error's code.
func RespondWithError(c *gin.Context, err error) {
	code := errors.CodeOf(err)

	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if code == errors.CodeInternal {
		message = "internal server error"
	}

	c.Error(err)
	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}
