package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodpay/internal/status"
	"foodpay/internal/store"
	"foodpay/models"
)

func TestPaymentService_Create_Success(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID:  "user-1",
		Amount:   decimal.NewFromInt(500),
		Currency: "INR",
		UpiID:    "user@upi",
		Product: models.ProductDetails{
			Name:     "Veg Thali",
			Price:    decimal.NewFromInt(250),
			Quantity: 2,
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.Contains(t, payment.ID, "pay_")
	assert.Equal(t, models.PaymentInitiated, payment.Status)
	assert.Nil(t, payment.CompletedAt)
	assert.Equal(t, "INR", payment.Currency)
	assert.Equal(t, f.frozen, payment.CreatedAt)

	stored, err := f.service.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, stored.ID)
}

func TestPaymentService_Create_DefaultsCurrencyAndQuantity(t *testing.T) {
	f := newPaymentFixture(true)

	payment, err := f.service.Create(context.Background(), CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(120),
		Product: models.ProductDetails{Name: "Masala Dosa", Price: decimal.NewFromInt(120)},
	})

	require.NoError(t, err)
	assert.Equal(t, "INR", payment.Currency)
	assert.Equal(t, 1, payment.Product.Quantity)
}

func TestPaymentService_Create_InvalidArgument(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreatePaymentRequest
	}{
		{
			name: "zero amount",
			req:  CreatePaymentRequest{OwnerID: "user-1", Amount: decimal.Zero},
		},
		{
			name: "negative amount",
			req:  CreatePaymentRequest{OwnerID: "user-1", Amount: decimal.NewFromInt(-50)},
		},
		{
			name: "unsupported currency",
			req:  CreatePaymentRequest{OwnerID: "user-1", Amount: decimal.NewFromInt(50), Currency: "USD"},
		},
		{
			name: "missing owner",
			req:  CreatePaymentRequest{Amount: decimal.NewFromInt(50)},
		},
		{
			name: "negative quantity",
			req: CreatePaymentRequest{
				OwnerID: "user-1",
				Amount:  decimal.NewFromInt(50),
				Product: models.ProductDetails{Name: "Chai", Quantity: -1},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Create(ctx, tc.req)
			assert.ErrorIs(t, err, status.ErrInvalidArgument)
		})
	}
}

func TestPaymentService_Verify_Approved(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	verified, err := f.service.Verify(ctx, payment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentSuccess, verified.Status)
	assert.Equal(t, "upi_cafe0001", verified.TransactionID)
	require.NotNil(t, verified.CompletedAt)
	assert.Equal(t, f.frozen, *verified.CompletedAt)
	assert.Empty(t, verified.FailureReason)

	messages := f.publisher.published()
	require.Len(t, messages, 1)
	assert.Equal(t, "user-user-1", messages[0].channel)
	assert.Equal(t, "payment_success", messages[0].message["type"])
}

func TestPaymentService_Verify_Declined(t *testing.T) {
	f := newPaymentFixture(false)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	verified, err := f.service.Verify(ctx, payment.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentFailed, verified.Status)
	assert.Equal(t, "Transaction declined by bank", verified.FailureReason)
	assert.Empty(t, verified.TransactionID)
	require.NotNil(t, verified.CompletedAt)

	messages := f.publisher.published()
	require.Len(t, messages, 1)
	assert.Equal(t, "payment_failed", messages[0].message["type"])
}

func TestPaymentService_Verify_Unknown(t *testing.T) {
	f := newPaymentFixture(true)

	_, err := f.service.Verify(context.Background(), "pay_missing")
	assert.ErrorIs(t, err, status.ErrPaymentNotFound)
}

func TestPaymentService_Verify_SingleShot(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	_, err = f.service.Verify(ctx, payment.ID)
	require.NoError(t, err)

	// A terminal payment is rejected, never re-decided.
	_, err = f.service.Verify(ctx, payment.ID)
	assert.ErrorIs(t, err, status.ErrInvalidState)
	assert.Equal(t, 1, f.gateway.callCount())
}

func TestPaymentService_Verify_GatewayErrorLeavesProcessing(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	f.gateway.err = errors.New("gateway unreachable")
	_, err = f.service.Verify(ctx, payment.ID)
	require.Error(t, err)

	stuck, err := f.service.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, stuck.Status)
	assert.Nil(t, stuck.CompletedAt)

	// A later call picks the payment up from processing and finishes.
	f.gateway.err = nil
	verified, err := f.service.Verify(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSuccess, verified.Status)
}

func TestPaymentService_Verify_ConcurrentCallersSingleTransition(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Verify(ctx, payment.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, rejections := 0, 0
	for err := range results {
		if err == nil {
			successes++
		} else if errors.Is(err, status.ErrInvalidState) {
			rejections++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, rejections)
	assert.Equal(t, 1, f.gateway.callCount())
}

func TestPaymentService_Cancel(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	payment, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-1",
		Amount:  decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, cancelled.Status)
	assert.Nil(t, cancelled.CompletedAt)

	// Cancelled is terminal: neither verify nor a second cancel may proceed.
	_, err = f.service.Verify(ctx, payment.ID)
	assert.ErrorIs(t, err, status.ErrInvalidState)
	_, err = f.service.Cancel(ctx, payment.ID)
	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestPaymentService_ListByOwner(t *testing.T) {
	f := newPaymentFixture(true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createdAt := f.frozen.Add(time.Duration(i) * time.Minute)
		f.service.now = func() time.Time { return createdAt }

		_, err := f.service.Create(ctx, CreatePaymentRequest{
			OwnerID: "user-1",
			Amount:  decimal.NewFromInt(int64(100 + i)),
		})
		require.NoError(t, err)
	}

	_, err := f.service.Create(ctx, CreatePaymentRequest{
		OwnerID: "user-2",
		Amount:  decimal.NewFromInt(999),
	})
	require.NoError(t, err)

	payments, total, err := f.service.ListByOwner(ctx, "user-1", store.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, payments, 2)

	// Newest first.
	assert.True(t, payments[0].CreatedAt.After(payments[1].CreatedAt))

	lastPage, _, err := f.service.ListByOwner(ctx, "user-1", store.Page{Number: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, lastPage, 1)

	empty, total, err := f.service.ListByOwner(ctx, "user-3", store.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, empty)
}
