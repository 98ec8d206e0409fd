package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"foodpay/internal/status"
	"foodpay/internal/store"
	"foodpay/models"
)

// Key layout:
//
//	payment:<id>                JSON payment record
//	payments:owner:<ownerId>    ZSET of payment ids, score = created-at unix nanos
//	ticket:<number>             JSON ticket record
//	ticket:payment:<paymentId>  one-ticket-per-payment binding, SETNX guarded
//	tickets:owner:<ownerId>     ZSET of ticket numbers, score = issue-date unix nanos
//	tickets:live                ZSET of confirmed ticket numbers, score = expires-at unix
//	ticket:code:<code>          verification code claim, TTL = validity window
const (
	paymentKeyFmt       = "payment:%s"
	paymentOwnerKeyFmt  = "payments:owner:%s"
	ticketKeyFmt        = "ticket:%s"
	ticketBindingKeyFmt = "ticket:payment:%s"
	ticketOwnerKeyFmt   = "tickets:owner:%s"
	ticketLiveKey       = "tickets:live"
	codeKeyFmt          = "ticket:code:%s"
)

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", status.ErrStoreUnavailable, err)
}

type PaymentStore struct {
	client *redis.Client
}

func NewPaymentStore(client *redis.Client) *PaymentStore {
	return &PaymentStore{client: client}
}

func (s *PaymentStore) Insert(ctx context.Context, p *models.Payment) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(paymentKeyFmt, p.ID)
	ownerKey := fmt.Sprintf(paymentOwnerKeyFmt, p.OwnerID)

	// Record and owner index land together so a half-written payment can
	// never be invisible to ListByOwner.
	var inserted *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		inserted = pipe.SetNX(ctx, key, payload, 0)
		pipe.ZAdd(ctx, ownerKey, redis.Z{
			Score:  float64(p.CreatedAt.UnixNano()),
			Member: p.ID,
		})
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	if !inserted.Val() {
		// Fresh 128-bit ids should never collide; treat a hit as a state bug.
		return status.ErrInvalidState
	}

	return nil
}

func (s *PaymentStore) Get(ctx context.Context, paymentID string) (*models.Payment, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(paymentKeyFmt, paymentID)).Result()
	if err == redis.Nil {
		return nil, status.ErrPaymentNotFound
	} else if err != nil {
		return nil, storeErr(err)
	}

	var p models.Payment
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PaymentStore) Update(ctx context.Context, p *models.Payment, from models.PaymentStatus) error {
	key := fmt.Sprintf(paymentKeyFmt, p.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return status.ErrPaymentNotFound
		} else if err != nil {
			return storeErr(err)
		}

		var current models.Payment
		if err := json.Unmarshal([]byte(data), &current); err != nil {
			return err
		}
		if current.Status != from {
			return status.ErrInvalidState
		}

		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Lost the optimistic race; the record moved under us.
		return status.ErrInvalidState
	}
	return err
}

func (s *PaymentStore) ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]*models.Payment, int, error) {
	ownerKey := fmt.Sprintf(paymentOwnerKeyFmt, ownerID)

	total, err := s.client.ZCard(ctx, ownerKey).Result()
	if err != nil {
		return nil, 0, storeErr(err)
	}

	start := int64(page.Offset())
	stop := start + int64(page.Size) - 1
	ids, err := s.client.ZRevRange(ctx, ownerKey, start, stop).Result()
	if err != nil {
		return nil, 0, storeErr(err)
	}

	payments := make([]*models.Payment, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if errors.Is(err, status.ErrPaymentNotFound) {
			continue
		} else if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}

	return payments, int(total), nil
}

type TicketStore struct {
	client *redis.Client
}

func NewTicketStore(client *redis.Client) *TicketStore {
	return &TicketStore{client: client}
}

func (s *TicketStore) Insert(ctx context.Context, t *models.Ticket) error {
	bindingKey := fmt.Sprintf(ticketBindingKeyFmt, t.PaymentID)
	ok, err := s.client.SetNX(ctx, bindingKey, t.Number, 0).Result()
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return status.ErrTicketAlreadyExists
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(ticketKeyFmt, t.Number), payload, 0)
		pipe.ZAdd(ctx, fmt.Sprintf(ticketOwnerKeyFmt, t.OwnerID), redis.Z{
			Score:  float64(t.IssueDate.UnixNano()),
			Member: t.Number,
		})
		pipe.ZAdd(ctx, ticketLiveKey, redis.Z{
			Score:  float64(t.ExpiresAt.Unix()),
			Member: t.Number,
		})
		return nil
	})
	if err != nil {
		// Undo the binding claim so the payment is not wedged behind a
		// record that never landed. Best effort; the claim is retried on
		// the next issue attempt.
		s.client.Del(ctx, bindingKey)
		return storeErr(err)
	}

	return nil
}

func (s *TicketStore) Get(ctx context.Context, ticketNumber string) (*models.Ticket, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(ticketKeyFmt, ticketNumber)).Result()
	if err == redis.Nil {
		return nil, status.ErrTicketNotFound
	} else if err != nil {
		return nil, storeErr(err)
	}

	var t models.Ticket
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TicketStore) GetByPayment(ctx context.Context, paymentID string) (*models.Ticket, error) {
	number, err := s.client.Get(ctx, fmt.Sprintf(ticketBindingKeyFmt, paymentID)).Result()
	if err == redis.Nil {
		return nil, status.ErrTicketNotFound
	} else if err != nil {
		return nil, storeErr(err)
	}

	return s.Get(ctx, number)
}

func (s *TicketStore) Update(ctx context.Context, t *models.Ticket, from models.TicketStatus) error {
	key := fmt.Sprintf(ticketKeyFmt, t.Number)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return status.ErrTicketNotFound
		} else if err != nil {
			return storeErr(err)
		}

		var current models.Ticket
		if err := json.Unmarshal([]byte(data), &current); err != nil {
			return err
		}
		if current.Status != from {
			return status.ErrInvalidState
		}

		payload, err := json.Marshal(t)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			if t.Status != models.TicketConfirmed {
				pipe.ZRem(ctx, ticketLiveKey, t.Number)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return status.ErrInvalidState
	}
	return err
}

func (s *TicketStore) ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]*models.Ticket, int, error) {
	ownerKey := fmt.Sprintf(ticketOwnerKeyFmt, ownerID)

	total, err := s.client.ZCard(ctx, ownerKey).Result()
	if err != nil {
		return nil, 0, storeErr(err)
	}

	start := int64(page.Offset())
	stop := start + int64(page.Size) - 1
	numbers, err := s.client.ZRevRange(ctx, ownerKey, start, stop).Result()
	if err != nil {
		return nil, 0, storeErr(err)
	}

	tickets := make([]*models.Ticket, 0, len(numbers))
	for _, number := range numbers {
		t, err := s.Get(ctx, number)
		if errors.Is(err, status.ErrTicketNotFound) {
			continue
		} else if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, t)
	}

	return tickets, int(total), nil
}

func (s *TicketStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Ticket, error) {
	numbers, err := s.client.ZRangeByScore(ctx, ticketLiveKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("(%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, storeErr(err)
	}

	tickets := make([]*models.Ticket, 0, len(numbers))
	for _, number := range numbers {
		t, err := s.Get(ctx, number)
		if errors.Is(err, status.ErrTicketNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, nil
}

func (s *TicketStore) Retire(ctx context.Context, ticketNumber string) error {
	if err := s.client.ZRem(ctx, ticketLiveKey, ticketNumber).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *TicketStore) CountLive(ctx context.Context) (int64, error) {
	count, err := s.client.ZCount(ctx, ticketLiveKey, fmt.Sprintf("%d", time.Now().Unix()), "+inf").Result()
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// CodeSet claims verification codes via SETNX. Claims carry the ticket
// validity window as TTL so an expired ticket's code frees itself.
type CodeSet struct {
	client *redis.Client
}

func NewCodeSet(client *redis.Client) *CodeSet {
	return &CodeSet{client: client}
}

func (s *CodeSet) Claim(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, fmt.Sprintf(codeKeyFmt, code), "1", ttl).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

func (s *CodeSet) Release(ctx context.Context, code string) error {
	if err := s.client.Del(ctx, fmt.Sprintf(codeKeyFmt, code)).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}
