package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"foodpay/config"
	"foodpay/internal/status"
	"foodpay/internal/store"
	"foodpay/models"
	"foodpay/monitoring"
	"foodpay/utils"
)

const expiredSweepBatch = 100

// TicketService owns ticket issuance and lifecycle. Issuance is atomic per
// payment: the keyed lock plus the store's unique payment binding make a
// second ticket for the same payment impossible, and every live ticket holds
// an exclusive claim on its verification code.
type TicketService struct {
	tickets   store.TicketStore
	payments  store.PaymentStore
	codes     store.CodeSet
	publisher Publisher

	validity        time.Duration
	codeLength      int
	codeAlphabet    string
	maxCodeAttempts int

	locks *keyedLocks
	now   Clock
}

func NewTicketService(tickets store.TicketStore, payments store.PaymentStore, codes store.CodeSet, publisher Publisher, cfg *config.Config) *TicketService {
	return &TicketService{
		tickets:         tickets,
		payments:        payments,
		codes:           codes,
		publisher:       publisher,
		validity:        cfg.TicketValidity,
		codeLength:      cfg.CodeLength,
		codeAlphabet:    cfg.CodeAlphabet,
		maxCodeAttempts: cfg.MaxCodeAttempts,
		locks:           newKeyedLocks(),
		now:             time.Now,
	}
}

// Issue creates the one ticket backed by a successful payment.
func (s *TicketService) Issue(ctx context.Context, paymentID string) (*models.Ticket, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", status.ErrInvalidArgument)
	}

	unlock := s.locks.lock(paymentID)
	defer unlock()

	payment, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentSuccess {
		monitoring.TrackIssuance("payment_not_successful")
		return nil, fmt.Errorf("%w: payment is %s", status.ErrPaymentNotSuccessful, payment.Status)
	}

	if _, err := s.tickets.GetByPayment(ctx, paymentID); err == nil {
		monitoring.TrackIssuance("duplicate")
		return nil, status.ErrTicketAlreadyExists
	} else if !errors.Is(err, status.ErrTicketNotFound) {
		return nil, err
	}

	code, err := s.claimCode(ctx)
	if err != nil {
		monitoring.TrackIssuance("code_exhausted")
		return nil, err
	}

	number, err := utils.GenerateCode(8)
	if err != nil {
		s.releaseCode(ctx, code)
		return nil, fmt.Errorf("generate ticket number: %w", err)
	}
	number = "TKT" + number

	now := s.now().UTC()
	ticket := &models.Ticket{
		Number:           number,
		VerificationCode: code,
		OwnerID:          payment.OwnerID,
		PaymentID:        payment.ID,
		Product:          payment.Product,
		Amount:           payment.Amount,
		Currency:         payment.Currency,
		IssueDate:        now,
		Status:           models.TicketConfirmed,
		QRCodeData:       models.QRPayload(number, payment.ID, payment.OwnerID),
		ExpiresAt:        now.Add(s.validity),
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		s.releaseCode(ctx, code)
		if errors.Is(err, status.ErrTicketAlreadyExists) {
			monitoring.TrackIssuance("duplicate")
		}
		return nil, err
	}

	s.publishTicket("ticket_issued", ticket)
	monitoring.TrackIssuance("issued")
	return ticket, nil
}

// claimCode draws candidate codes until one is globally unclaimed. The claim
// expires with the ticket so the code returns to the pool on its own.
func (s *TicketService) claimCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= s.maxCodeAttempts; attempt++ {
		code, err := utils.GenerateShortCode(s.codeLength, s.codeAlphabet)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}

		ok, err := s.codes.Claim(ctx, code, s.validity)
		if err != nil {
			return "", err
		}
		if ok {
			monitoring.ObserveCodeClaim(attempt)
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: no free code after %d attempts", status.ErrCodeSpaceExhausted, s.maxCodeAttempts)
}

func (s *TicketService) releaseCode(ctx context.Context, code string) {
	if err := s.codes.Release(ctx, code); err != nil {
		slog.Error("release verification code", "code", code, "error", err)
	}
}

func (s *TicketService) Get(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	return s.tickets.Get(ctx, ticketNumber)
}

// GetByPayment resolves the ticket bound to a payment, if any.
func (s *TicketService) GetByPayment(ctx context.Context, paymentID string) (*models.Ticket, error) {
	return s.tickets.GetByPayment(ctx, paymentID)
}

func (s *TicketService) ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]*models.Ticket, int, error) {
	if ownerID == "" {
		return nil, 0, fmt.Errorf("%w: owner id is required", status.ErrInvalidArgument)
	}
	return s.tickets.ListByOwner(ctx, ownerID, normalizePage(page))
}

// SetStatus applies confirmed -> cancelled or confirmed -> refunded. The
// verification code is released eagerly since a revoked ticket is no longer
// live.
func (s *TicketService) SetStatus(ctx context.Context, ticketNumber string, next models.TicketStatus) (*models.Ticket, error) {
	unlock := s.locks.lock(ticketNumber)
	defer unlock()

	ticket, err := s.tickets.Get(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}

	previous := ticket.Status
	if err := ticket.Transition(next); err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", status.ErrInvalidState, previous, next)
	}

	if err := s.tickets.Update(ctx, ticket, previous); err != nil {
		return nil, err
	}

	s.releaseCode(ctx, ticket.VerificationCode)
	s.publishTicket("ticket_status", ticket)
	return ticket, nil
}

// CleanupExpired retires tickets past their expiry and frees their codes.
// Returns the number of tickets swept.
func (s *TicketService) CleanupExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()

	expired, err := s.tickets.ListExpired(ctx, now, expiredSweepBatch)
	if err != nil {
		return 0, err
	}

	for _, ticket := range expired {
		s.releaseCode(ctx, ticket.VerificationCode)
		if err := s.tickets.Retire(ctx, ticket.Number); err != nil {
			return 0, err
		}
	}

	monitoring.TrackExpiredSweep(len(expired))
	return len(expired), nil
}

// RunCleanup sweeps expired tickets on the given interval until the context
// is cancelled.
func (s *TicketService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.CleanupExpired(ctx)
			if err != nil {
				slog.Error("expired ticket cleanup", "error", err)
				continue
			}
			if count > 0 {
				slog.Info("expired tickets swept", "count", count)
			}
		}
	}
}

func (s *TicketService) publishTicket(eventType string, t *models.Ticket) {
	if s.publisher == nil {
		return
	}

	s.publisher.Publish(userChannel(t.OwnerID), map[string]any{
		"type":          eventType,
		"ticket_number": t.Number,
		"payment_id":    t.PaymentID,
		"status":        string(t.Status),
	})
}
