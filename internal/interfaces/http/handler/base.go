package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/menusync/backend/internal/domain/channel"
	"github.com/menusync/backend/internal/domain/shared"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
	"github.com/menusync/backend/internal/interfaces/http/dto"
	"github.com/menusync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	if id := c.GetHeader(middleware.RequestIDHeader); id != "" {
		return id
	}
	return ""
}

// getTenantID extracts the tenant ID set by the tenant middleware, falling
// back to the X-Tenant-ID header for routes the middleware does not cover
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := middleware.GetTenantID(c)
	if tenantIDStr == "" {
		tenantIDStr = c.GetHeader(middleware.TenantHeaderKey)
	}
	if tenantIDStr == "" {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return uuid.Parse(tenantIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// UnprocessableEntity sends a 422 unprocessable entity response
func (h *BaseHandler) UnprocessableEntity(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnprocessableEntity, code, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// TooManyRequests sends a 429 too many requests response
func (h *BaseHandler) TooManyRequests(c *gin.Context, message string) {
	h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		details,
	))
}

// sentinelCode maps domain sentinel errors to an error code. An empty
// return value means the error did not match a known sentinel.
func sentinelCode(err error) string {
	switch {
	case errors.Is(err, syncdomain.ErrJobNotFound),
		errors.Is(err, syncdomain.ErrAlertNotFound),
		errors.Is(err, channel.ErrAssignmentNotFound),
		errors.Is(err, channel.ErrChannelNotConfigured):
		return dto.ErrCodeNotFound
	case errors.Is(err, syncdomain.ErrInvalidSyncType),
		errors.Is(err, syncdomain.ErrInvalidPriority),
		errors.Is(err, syncdomain.ErrInvalidStatusFilter),
		errors.Is(err, syncdomain.ErrAlertInvalidCondition),
		errors.Is(err, syncdomain.ErrAlertInvalidThreshold),
		errors.Is(err, channel.ErrAssignmentInvalidChannel),
		errors.Is(err, channel.ErrAssignmentMissingAuth),
		errors.Is(err, channel.ErrAssignmentInvalidTenantID):
		return dto.ErrCodeInvalidInput
	case errors.Is(err, syncdomain.ErrJobTerminal),
		errors.Is(err, syncdomain.ErrInvalidTransition):
		return dto.ErrCodeInvalidState
	case errors.Is(err, channel.ErrAssignmentDisabled),
		errors.Is(err, channel.ErrChannelNotEnabled):
		return dto.ErrCodeChannelDisabled
	case errors.Is(err, channel.ErrCircuitOpen),
		errors.Is(err, channel.ErrChannelUnavailable):
		return dto.ErrCodeChannelUnavailable
	case errors.Is(err, channel.ErrRateLimited):
		return dto.ErrCodeRateLimited
	case errors.Is(err, channel.ErrWebhookInvalidEvent):
		return dto.ErrCodeBadRequest
	default:
		return ""
	}
}

// HandleDomainError converts domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	if code := sentinelCode(err); code != "" {
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, err.Error(), requestID))
		return
	}

	// Unknown error type - return as internal error
	h.InternalError(c, "An unexpected error occurred")
}

// HandleError is a generic error handler that handles both domain and standard errors
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	h.HandleDomainError(c, err)
}
