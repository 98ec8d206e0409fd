package status

import "errors"

// Sentinel errors for the payment/ticket core. Callers branch with errors.Is;
// the HTTP layer maps each one to a stable outward status.
var (
	ErrInvalidArgument      = errors.New("request: invalid argument")
	ErrPaymentNotFound      = errors.New("payment: payment not found")
	ErrTicketNotFound       = errors.New("ticket: ticket not found")
	ErrInvalidState         = errors.New("state: operation not allowed in current state")
	ErrPaymentNotSuccessful = errors.New("ticket: payment is not successful")
	ErrTicketAlreadyExists  = errors.New("ticket: ticket already exists for this payment")
	ErrCodeSpaceExhausted   = errors.New("ticket: verification code space exhausted")
	ErrStoreUnavailable     = errors.New("store: store unavailable")
)
