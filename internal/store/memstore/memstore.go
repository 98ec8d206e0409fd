package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"foodpay/internal/status"
	"foodpay/internal/store"
	"foodpay/models"
)

// PaymentStore keeps payment records in process memory. It backs tests and
// single-node development runs; the redis store is the production twin.
type PaymentStore struct {
	mutex    sync.RWMutex
	payments map[string]*models.Payment
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{payments: make(map[string]*models.Payment)}
}

func (s *PaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.payments[p.ID]; ok {
		return status.ErrInvalidState
	}

	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *PaymentStore) Get(ctx context.Context, paymentID string) (*models.Payment, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, status.ErrPaymentNotFound
	}

	return clonePayment(p), nil
}

func (s *PaymentStore) Update(ctx context.Context, p *models.Payment, from models.PaymentStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.payments[p.ID]
	if !ok {
		return status.ErrPaymentNotFound
	}
	if current.Status != from {
		return status.ErrInvalidState
	}

	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *PaymentStore) ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]*models.Payment, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var owned []*models.Payment
	for _, p := range s.payments {
		if p.OwnerID == ownerID {
			owned = append(owned, clonePayment(p))
		}
	}

	// Newest first.
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	return paginate(owned, page), len(owned), nil
}

// TicketStore keeps ticket records in process memory with a unique
// payment binding and a live-ticket index for expiry sweeps.
type TicketStore struct {
	mutex     sync.RWMutex
	tickets   map[string]*models.Ticket
	byPayment map[string]string
	live      map[string]time.Time // ticket number -> expiresAt, confirmed tickets only
	now       func() time.Time
}

func NewTicketStore() *TicketStore {
	return &TicketStore{
		tickets:   make(map[string]*models.Ticket),
		byPayment: make(map[string]string),
		live:      make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *TicketStore) Insert(ctx context.Context, t *models.Ticket) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.byPayment[t.PaymentID]; ok {
		return status.ErrTicketAlreadyExists
	}
	if _, ok := s.tickets[t.Number]; ok {
		return status.ErrInvalidState
	}

	s.tickets[t.Number] = cloneTicket(t)
	s.byPayment[t.PaymentID] = t.Number
	s.live[t.Number] = t.ExpiresAt
	return nil
}

func (s *TicketStore) Get(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.tickets[ticketNumber]
	if !ok {
		return nil, status.ErrTicketNotFound
	}

	return cloneTicket(t), nil
}

func (s *TicketStore) GetByPayment(ctx context.Context, paymentID string) (*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	number, ok := s.byPayment[paymentID]
	if !ok {
		return nil, status.ErrTicketNotFound
	}

	return cloneTicket(s.tickets[number]), nil
}

func (s *TicketStore) Update(ctx context.Context, t *models.Ticket, from models.TicketStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.tickets[t.Number]
	if !ok {
		return status.ErrTicketNotFound
	}
	if current.Status != from {
		return status.ErrInvalidState
	}

	s.tickets[t.Number] = cloneTicket(t)
	if t.Status != models.TicketConfirmed {
		delete(s.live, t.Number)
	}
	return nil
}

func (s *TicketStore) ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]*models.Ticket, int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var owned []*models.Ticket
	for _, t := range s.tickets {
		if t.OwnerID == ownerID {
			owned = append(owned, cloneTicket(t))
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].IssueDate.After(owned[j].IssueDate)
	})

	return paginate(owned, page), len(owned), nil
}

func (s *TicketStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var expired []*models.Ticket
	for number, expiresAt := range s.live {
		if now.After(expiresAt) {
			expired = append(expired, cloneTicket(s.tickets[number]))
			if limit > 0 && len(expired) >= limit {
				break
			}
		}
	}

	return expired, nil
}

// Retire drops a ticket from the live index once its code has been released.
// The record itself is retained.
func (s *TicketStore) Retire(ctx context.Context, ticketNumber string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.live, ticketNumber)
	return nil
}

func (s *TicketStore) CountLive(ctx context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	now := s.now()
	var count int64
	for _, expiresAt := range s.live {
		if expiresAt.After(now) {
			count++
		}
	}

	return count, nil
}

// CodeSet is the in-memory verification code claim set, the direct
// generalization of a map of used codes.
type CodeSet struct {
	mutex  sync.Mutex
	claims map[string]time.Time // code -> claim expiry, zero means no TTL
	now    func() time.Time
}

func NewCodeSet() *CodeSet {
	return &CodeSet{claims: make(map[string]time.Time), now: time.Now}
}

func (s *CodeSet) Claim(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if expiry, ok := s.claims[code]; ok {
		if expiry.IsZero() || expiry.After(s.now()) {
			return false, nil
		}
		// Stale claim, fall through and re-claim.
	}

	if ttl > 0 {
		s.claims[code] = s.now().Add(ttl)
	} else {
		s.claims[code] = time.Time{}
	}
	return true, nil
}

func (s *CodeSet) Release(ctx context.Context, code string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.claims, code)
	return nil
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	if p.CompletedAt != nil {
		completed := *p.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	c := *t
	return &c
}

func paginate[T any](items []T, page store.Page) []T {
	if page.Size <= 0 {
		return items
	}

	offset := page.Offset()
	if offset >= len(items) {
		return nil
	}

	end := offset + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
