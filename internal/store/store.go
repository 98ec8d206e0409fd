package store

import (
	"context"
	"time"

	"foodpay/models"
)

// Page is 1-based pagination input for owner listings.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	n := p.Number
	if n < 1 {
		n = 1
	}
	return (n - 1) * p.Size
}

// PaymentStore is the durable home of payment records. Insert is
// insert-if-absent; Update is conditional on the status the caller read.
type PaymentStore interface {
	Insert(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, paymentID string) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment, from models.PaymentStatus) error
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]*models.Payment, int, error)
}

// TicketStore is the durable home of ticket records. Insert enforces the
// one-ticket-per-payment constraint atomically and returns
// status.ErrTicketAlreadyExists when the payment is already bound.
type TicketStore interface {
	Insert(ctx context.Context, t *models.Ticket) error
	Get(ctx context.Context, ticketNumber string) (*models.Ticket, error)
	GetByPayment(ctx context.Context, paymentID string) (*models.Ticket, error)
	Update(ctx context.Context, t *models.Ticket, from models.TicketStatus) error
	ListByOwner(ctx context.Context, ownerID string, page Page) ([]*models.Ticket, int, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error)
	Retire(ctx context.Context, ticketNumber string) error
	CountLive(ctx context.Context) (int64, error)
}

// CodeSet tracks verification codes currently claimed by live tickets.
// Claim is atomic insert-if-absent; a claim may carry a TTL so expiry releases
// the code without a sweep.
type CodeSet interface {
	Claim(ctx context.Context, code string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, code string) error
}
