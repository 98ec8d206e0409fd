package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"foodpay/internal/status"
)

// apiError maps core errors to stable outward statuses. Collaborator failures
// are reported as unavailability without the underlying detail.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrInvalidArgument):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrPaymentNotFound):
		return apis.NewNotFoundError("Payment not found", nil)
	case errors.Is(err, status.ErrTicketNotFound):
		return apis.NewNotFoundError("Ticket not found", nil)
	case errors.Is(err, status.ErrInvalidState):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrPaymentNotSuccessful):
		return apis.NewBadRequestError("Cannot generate ticket for unsuccessful payment", nil)
	case errors.Is(err, status.ErrCodeSpaceExhausted),
		errors.Is(err, status.ErrStoreUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
	default:
		return apis.NewApiError(http.StatusInternalServerError, "Internal error", nil)
	}
}
