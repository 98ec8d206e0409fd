package services

import (
	"context"
	"sync"
	"time"

	"foodpay/config"
	"foodpay/internal/gateway"
	"foodpay/internal/store/memstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Currency:        "INR",
		TicketValidity:  30 * 24 * time.Hour,
		CodeLength:      6,
		CodeAlphabet:    "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
		MaxCodeAttempts: 5,
	}
}

// scriptedGateway is a deterministic stand-in for the settlement provider.
type scriptedGateway struct {
	mutex   sync.Mutex
	approve bool
	err     error
	calls   int
}

func (g *scriptedGateway) Decide(ctx context.Context, paymentID string) (*gateway.Decision, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if g.approve {
		return &gateway.Decision{Approved: true, ExternalRef: "upi_cafe0001"}, nil
	}
	return &gateway.Decision{Approved: false, Reason: "Transaction declined by bank"}, nil
}

func (g *scriptedGateway) callCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.calls
}

type publishedMessage struct {
	channel string
	message map[string]any
}

type recordingPublisher struct {
	mutex    sync.Mutex
	messages []publishedMessage
}

func (p *recordingPublisher) Publish(channel string, message map[string]any) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.messages = append(p.messages, publishedMessage{channel: channel, message: message})
}

func (p *recordingPublisher) published() []publishedMessage {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

type paymentFixture struct {
	service   *PaymentService
	store     *memstore.PaymentStore
	gateway   *scriptedGateway
	publisher *recordingPublisher
	frozen    time.Time
}

func newPaymentFixture(approve bool) *paymentFixture {
	paymentStore := memstore.NewPaymentStore()
	gw := &scriptedGateway{approve: approve}
	publisher := &recordingPublisher{}

	service := NewPaymentService(paymentStore, gw, publisher, testConfig())

	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return frozen }

	return &paymentFixture{
		service:   service,
		store:     paymentStore,
		gateway:   gw,
		publisher: publisher,
		frozen:    frozen,
	}
}

type ticketFixture struct {
	payments  *PaymentService
	tickets   *TicketService
	validator *RedemptionValidator
	codes     *memstore.CodeSet
	publisher *recordingPublisher
	gateway   *scriptedGateway
	frozen    time.Time
}

func newTicketFixture() *ticketFixture {
	return newTicketFixtureWithConfig(testConfig())
}

func newTicketFixtureWithConfig(cfg *config.Config) *ticketFixture {
	paymentStore := memstore.NewPaymentStore()
	ticketStore := memstore.NewTicketStore()
	codes := memstore.NewCodeSet()
	gw := &scriptedGateway{approve: true}
	publisher := &recordingPublisher{}

	payments := NewPaymentService(paymentStore, gw, publisher, cfg)
	tickets := NewTicketService(ticketStore, paymentStore, codes, publisher, cfg)
	validator := NewRedemptionValidator(ticketStore)

	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payments.now = func() time.Time { return frozen }
	tickets.now = func() time.Time { return frozen }
	validator.now = func() time.Time { return frozen }

	return &ticketFixture{
		payments:  payments,
		tickets:   tickets,
		validator: validator,
		codes:     codes,
		publisher: publisher,
		gateway:   gw,
		frozen:    frozen,
	}
}

func (f *ticketFixture) advance(d time.Duration) {
	frozen := f.frozen.Add(d)
	f.tickets.now = func() time.Time { return frozen }
	f.validator.now = func() time.Time { return frozen }
}
