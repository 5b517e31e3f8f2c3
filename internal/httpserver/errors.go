package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
	"storefront/internal/service/session"
	"storefront/internal/storeapi"
)

type errorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, errorResponse) {
	var validation *domain.ValidationError
	var fieldErrs validator.ValidationErrors
	var apiErr *storeapi.APIError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Message: validation.Message, Field: validation.Field}
	case errors.As(err, &fieldErrs):
		return http.StatusBadRequest, errorResponse{Message: fieldErrs.Error()}
	case errors.Is(err, domain.ErrUnknownPromo):
		return http.StatusBadRequest, errorResponse{Message: err.Error(), Field: "promoCode"}
	case errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrDeliveryNotEligible):
		return http.StatusBadRequest, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "not found"}
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{Message: "session expired"}
	case errors.Is(err, domain.ErrSubmitInFlight), errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrNoDeliveryOptions):
		return http.StatusUnprocessableEntity, errorResponse{Message: err.Error()}
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, errorResponse{Message: apiErr.Message}
	default:
		return http.StatusInternalServerError, errorResponse{Message: "internal error"}
	}
}

func writeError(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func abortWithError(c *gin.Context, err error) {
	writeError(c, err)
	c.Abort()
}

// bindError wraps malformed request bodies as validation failures.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return err
	}
	return domain.NewValidationError("body", err.Error())
}
