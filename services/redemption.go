package services

import (
	"context"
	"fmt"
	"time"

	"foodpay/internal/store"
	"foodpay/models"
	"foodpay/monitoring"
)

type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Reason string         `json:"reason,omitempty"`
	Ticket *models.Ticket `json:"ticket,omitempty"`
}

// RedemptionValidator answers "is this ticket usable now". Status is checked
// before expiry so a cancelled-but-unexpired ticket reports its cancellation,
// not "expired".
type RedemptionValidator struct {
	tickets store.TicketStore
	now     Clock
}

func NewRedemptionValidator(tickets store.TicketStore) *RedemptionValidator {
	return &RedemptionValidator{tickets: tickets, now: time.Now}
}

func (v *RedemptionValidator) Validate(ctx context.Context, ticketNumber string) (*ValidationResult, error) {
	ticket, err := v.tickets.Get(ctx, ticketNumber)
	if err != nil {
		monitoring.TrackValidation("not_found")
		return nil, err
	}

	if ticket.Status != models.TicketConfirmed {
		monitoring.TrackValidation("revoked")
		return &ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("ticket is %s", ticket.Status),
			Ticket: ticket,
		}, nil
	}

	if IsExpired(ticket, v.now()) {
		monitoring.TrackValidation("expired")
		return &ValidationResult{Valid: false, Reason: "expired", Ticket: ticket}, nil
	}

	monitoring.TrackValidation("valid")
	return &ValidationResult{Valid: true, Ticket: ticket}, nil
}

// ValidateWithCode additionally checks the presented verification code before
// the usual status and expiry checks.
func (v *RedemptionValidator) ValidateWithCode(ctx context.Context, ticketNumber, code string) (*ValidationResult, error) {
	ticket, err := v.tickets.Get(ctx, ticketNumber)
	if err != nil {
		monitoring.TrackValidation("not_found")
		return nil, err
	}

	if ticket.VerificationCode != code {
		monitoring.TrackValidation("code_mismatch")
		return &ValidationResult{Valid: false, Reason: "invalid verification code"}, nil
	}

	return v.Validate(ctx, ticketNumber)
}
