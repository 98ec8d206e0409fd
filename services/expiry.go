package services

import (
	"time"

	"foodpay/models"
)

// Clock supplies the current time. Services default to time.Now; tests freeze
// it.
type Clock func() time.Time

// IsExpired reports whether the ticket is past its expiry at the given
// instant. Status is deliberately not consulted here.
func IsExpired(t *models.Ticket, now time.Time) bool {
	return now.After(t.ExpiresAt)
}
