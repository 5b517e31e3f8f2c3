package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrUnknownPromo is returned for promo codes missing from the lookup table.
	ErrUnknownPromo = errors.New("promo code not recognized")
	// ErrNoDeliveryOptions means no carrier serves the destination country.
	ErrNoDeliveryOptions = errors.New("no delivery options available for this country")
	// ErrDeliveryNotEligible means the chosen carrier does not serve the destination.
	ErrDeliveryNotEligible = errors.New("delivery option not available for this country")
	// ErrSessionExpired is returned when the remote API rejects the bearer token.
	ErrSessionExpired = errors.New("session expired")
	// ErrSubmitInFlight guards against double submission of a checkout.
	ErrSubmitInFlight = errors.New("order submission already in progress")
	// ErrInvalidState is returned for checkout steps taken out of order.
	ErrInvalidState = errors.New("invalid checkout state")
	ErrEmptyCart    = errors.New("cart is empty")
)

// ValidationError reports a locally detected input problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
