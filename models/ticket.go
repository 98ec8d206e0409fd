package models

import (
	"fmt"
	"time"

	"foodpay/internal/status"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketConfirmed TicketStatus = "confirmed"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

type Ticket struct {
	Number           string          `json:"ticket_number"`
	VerificationCode string          `json:"verification_code"`
	OwnerID          string          `json:"owner_id"`
	PaymentID        string          `json:"payment_id"`
	Product          ProductDetails  `json:"product_details"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	IssueDate        time.Time       `json:"issue_date"`
	Status           TicketStatus    `json:"status"`
	QRCodeData       string          `json:"qr_code_data"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// Transition validates and applies a status change. The only legal moves are
// confirmed -> cancelled and confirmed -> refunded; both are terminal.
func (t *Ticket) Transition(next TicketStatus) error {
	if t.Status != TicketConfirmed {
		return status.ErrInvalidState
	}
	switch next {
	case TicketCancelled, TicketRefunded:
		t.Status = next
		return nil
	default:
		return status.ErrInvalidState
	}
}

// QRPayload is the scannable content embedded in the ticket QR code.
func QRPayload(ticketNumber, paymentID, ownerID string) string {
	return fmt.Sprintf("ticket:%s:%s:%s", ticketNumber, paymentID, ownerID)
}
