package models

import (
	"time"

	"foodpay/internal/status"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentInitiated  PaymentStatus = "initiated"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSuccess    PaymentStatus = "success"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentSuccess || s == PaymentFailed || s == PaymentCancelled
}

type ProductDetails struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type Payment struct {
	ID            string          `json:"payment_id"`
	OwnerID       string          `json:"owner_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`
	UpiID         string          `json:"upi_id,omitempty"`
	Product       ProductDetails  `json:"product_details"`
	TransactionID string          `json:"upi_transaction_id,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// MarkProcessing moves the payment from initiated to processing. It is the
// only non-terminal transition and exists so a slow gateway call is observable.
func (p *Payment) MarkProcessing() error {
	if p.Status != PaymentInitiated {
		return status.ErrInvalidState
	}
	p.Status = PaymentProcessing
	return nil
}

// Complete records gateway approval. CompletedAt is set here and nowhere else
// except Decline.
func (p *Payment) Complete(transactionID string, now time.Time) error {
	if p.Status.Terminal() {
		return status.ErrInvalidState
	}
	p.Status = PaymentSuccess
	p.TransactionID = transactionID
	p.CompletedAt = &now
	return nil
}

// Decline records a gateway decline with the bank's reason.
func (p *Payment) Decline(reason string, now time.Time) error {
	if p.Status.Terminal() {
		return status.ErrInvalidState
	}
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.CompletedAt = &now
	return nil
}

// Cancel abandons a payment that was never handed to the gateway.
func (p *Payment) Cancel() error {
	if p.Status != PaymentInitiated {
		return status.ErrInvalidState
	}
	p.Status = PaymentCancelled
	return nil
}
