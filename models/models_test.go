package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodpay/internal/status"
)

func TestPaymentStatusTerminal(t *testing.T) {
	assert.False(t, PaymentInitiated.Terminal())
	assert.False(t, PaymentProcessing.Terminal())
	assert.True(t, PaymentSuccess.Terminal())
	assert.True(t, PaymentFailed.Terminal())
	assert.True(t, PaymentCancelled.Terminal())
}

func TestPaymentLifecycle(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	payment := &Payment{Status: PaymentInitiated}
	require.NoError(t, payment.MarkProcessing())
	assert.Equal(t, PaymentProcessing, payment.Status)

	require.NoError(t, payment.Complete("upi_abc123", now))
	assert.Equal(t, PaymentSuccess, payment.Status)
	assert.Equal(t, "upi_abc123", payment.TransactionID)
	require.NotNil(t, payment.CompletedAt)
	assert.Equal(t, now, *payment.CompletedAt)

	// Terminal states accept nothing further.
	assert.ErrorIs(t, payment.MarkProcessing(), status.ErrInvalidState)
	assert.ErrorIs(t, payment.Complete("upi_other", now), status.ErrInvalidState)
	assert.ErrorIs(t, payment.Decline("too late", now), status.ErrInvalidState)
	assert.ErrorIs(t, payment.Cancel(), status.ErrInvalidState)
	assert.Equal(t, "upi_abc123", payment.TransactionID)
}

func TestPaymentDecline(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	payment := &Payment{Status: PaymentProcessing}
	require.NoError(t, payment.Decline("Transaction declined by bank", now))
	assert.Equal(t, PaymentFailed, payment.Status)
	assert.Equal(t, "Transaction declined by bank", payment.FailureReason)
	require.NotNil(t, payment.CompletedAt)
}

func TestPaymentCancelOnlyFromInitiated(t *testing.T) {
	payment := &Payment{Status: PaymentInitiated}
	require.NoError(t, payment.Cancel())
	assert.Equal(t, PaymentCancelled, payment.Status)

	processing := &Payment{Status: PaymentProcessing}
	assert.ErrorIs(t, processing.Cancel(), status.ErrInvalidState)
}

func TestTicketTransition(t *testing.T) {
	cases := []struct {
		name string
		from TicketStatus
		to   TicketStatus
		ok   bool
	}{
		{"confirmed to cancelled", TicketConfirmed, TicketCancelled, true},
		{"confirmed to refunded", TicketConfirmed, TicketRefunded, true},
		{"confirmed to confirmed", TicketConfirmed, TicketConfirmed, false},
		{"cancelled to refunded", TicketCancelled, TicketRefunded, false},
		{"refunded to cancelled", TicketRefunded, TicketCancelled, false},
		{"cancelled to confirmed", TicketCancelled, TicketConfirmed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := &Ticket{Status: tc.from}
			err := ticket.Transition(tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, ticket.Status)
			} else {
				assert.ErrorIs(t, err, status.ErrInvalidState)
				assert.Equal(t, tc.from, ticket.Status)
			}
		})
	}
}

func TestQRPayload(t *testing.T) {
	payload := QRPayload("TKT1A2B3C4D", "pay_deadbeef", "user-7")
	assert.Equal(t, "ticket:TKT1A2B3C4D:pay_deadbeef:user-7", payload)
}
