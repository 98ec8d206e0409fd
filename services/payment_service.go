package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"foodpay/config"
	"foodpay/internal/gateway"
	"foodpay/internal/status"
	"foodpay/internal/store"
	"foodpay/models"
	"foodpay/monitoring"
	"foodpay/utils"
)

// PaymentService owns the payment lifecycle. Verification is single-shot per
// payment: the keyed lock plus the store's conditional update guarantee
// exactly one terminal transition no matter how many callers race.
type PaymentService struct {
	store     store.PaymentStore
	gateway   gateway.Gateway
	breaker   *utils.CircuitBreaker
	publisher Publisher
	currency  string
	locks     *keyedLocks
	now       Clock
}

func NewPaymentService(paymentStore store.PaymentStore, gw gateway.Gateway, publisher Publisher, cfg *config.Config) *PaymentService {
	return &PaymentService{
		store:     paymentStore,
		gateway:   gw,
		breaker:   utils.NewCircuitBreaker("payment-gateway"),
		publisher: publisher,
		currency:  cfg.Currency,
		locks:     newKeyedLocks(),
		now:       time.Now,
	}
}

type CreatePaymentRequest struct {
	OwnerID  string                `json:"owner_id"`
	Amount   decimal.Decimal       `json:"amount"`
	Currency string                `json:"currency"`
	UpiID    string                `json:"upi_id"`
	Product  models.ProductDetails `json:"product_details"`
}

func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", status.ErrInvalidArgument)
	}
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", status.ErrInvalidArgument)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return nil, fmt.Errorf("%w: unsupported currency %q", status.ErrInvalidArgument, currency)
	}

	product := req.Product
	if product.Quantity == 0 {
		product.Quantity = 1
	}
	if product.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", status.ErrInvalidArgument)
	}

	id, err := utils.GenerateID("pay")
	if err != nil {
		return nil, fmt.Errorf("generate payment id: %w", err)
	}

	payment := &models.Payment{
		ID:        id,
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		Currency:  currency,
		Status:    models.PaymentInitiated,
		UpiID:     req.UpiID,
		Product:   product,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Insert(ctx, payment); err != nil {
		monitoring.TrackPaymentOperation("create", "error")
		return nil, err
	}

	monitoring.TrackPaymentOperation("create", "ok")
	return payment, nil
}

// Verify hands the payment to the gateway and records the verdict. A payment
// already in a terminal state is rejected, never re-decided. A gateway error
// leaves the payment in processing so a later call can finish the job.
func (s *PaymentService) Verify(ctx context.Context, paymentID string) (*models.Payment, error) {
	unlock := s.locks.lock(paymentID)
	defer unlock()

	payment, err := s.store.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status.Terminal() {
		monitoring.TrackPaymentOperation("verify", "rejected")
		return nil, fmt.Errorf("%w: payment is %s", status.ErrInvalidState, payment.Status)
	}

	if payment.Status == models.PaymentInitiated {
		if err := payment.MarkProcessing(); err != nil {
			return nil, err
		}
		if err := s.store.Update(ctx, payment, models.PaymentInitiated); err != nil {
			return nil, err
		}
	}

	result, err := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.gateway.Decide(ctx, payment.ID)
	})
	if err != nil {
		monitoring.TrackPaymentOperation("verify", "gateway_error")
		return nil, fmt.Errorf("gateway decide: %w", err)
	}
	decision := result.(*gateway.Decision)

	now := s.now().UTC()
	if decision.Approved {
		if err := payment.Complete(decision.ExternalRef, now); err != nil {
			return nil, err
		}
	} else {
		if err := payment.Decline(decision.Reason, now); err != nil {
			return nil, err
		}
	}

	if err := s.store.Update(ctx, payment, models.PaymentProcessing); err != nil {
		return nil, err
	}

	s.publish(payment)
	monitoring.TrackPaymentOperation("verify", string(payment.Status))
	return payment, nil
}

// Cancel abandons a payment that has not been handed to the gateway yet.
func (s *PaymentService) Cancel(ctx context.Context, paymentID string) (*models.Payment, error) {
	unlock := s.locks.lock(paymentID)
	defer unlock()

	payment, err := s.store.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := payment.Cancel(); err != nil {
		monitoring.TrackPaymentOperation("cancel", "rejected")
		return nil, fmt.Errorf("%w: cannot cancel a %s payment", status.ErrInvalidState, payment.Status)
	}

	if err := s.store.Update(ctx, payment, models.PaymentInitiated); err != nil {
		return nil, err
	}

	monitoring.TrackPaymentOperation("cancel", "ok")
	return payment, nil
}

func (s *PaymentService) Get(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.store.Get(ctx, paymentID)
}

func (s *PaymentService) ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]*models.Payment, int, error) {
	if ownerID == "" {
		return nil, 0, fmt.Errorf("%w: owner id is required", status.ErrInvalidArgument)
	}
	return s.store.ListByOwner(ctx, ownerID, normalizePage(page))
}

func (s *PaymentService) publish(p *models.Payment) {
	if s.publisher == nil {
		return
	}

	eventType := "payment_failed"
	if p.Status == models.PaymentSuccess {
		eventType = "payment_success"
	}

	s.publisher.Publish(userChannel(p.OwnerID), map[string]any{
		"type":       eventType,
		"payment_id": p.ID,
		"amount":     p.Amount.String(),
		"currency":   p.Currency,
	})
}

func normalizePage(page store.Page) store.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = 10
	}
	if page.Size > 100 {
		page.Size = 100
	}
	return page
}
