package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"foodpay/internal/store"
	"foodpay/models"
	"foodpay/services"
)

type PaymentHandler struct {
	app      *pocketbase.PocketBase
	payments *services.PaymentService
}

func NewPaymentHandler(app *pocketbase.PocketBase, payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		app:      app,
		payments: payments,
	}
}

// CreatePayment - Create a new payment in the initiated state
func (h *PaymentHandler) CreatePayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req services.CreatePaymentRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.OwnerID = e.Auth.Id

	payment, err := h.payments.Create(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Payment created successfully",
		"data":    payment,
	})
}

// VerifyPayment - Hand the payment to the gateway and record the outcome
func (h *PaymentHandler) VerifyPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	paymentID := e.Request.PathValue("paymentId")
	ctx := e.Request.Context()

	if err := h.checkOwnership(e, paymentID); err != nil {
		return err
	}

	payment, err := h.payments.Verify(ctx, paymentID)
	if err != nil {
		return apiError(err)
	}

	recordPaymentAudit(h.app, payment)

	if payment.Status != models.PaymentSuccess {
		return e.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Payment verification failed",
			"data":    payment,
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment verified successfully",
		"data":    payment,
	})
}

// CancelPayment - Abandon a payment that was never verified
func (h *PaymentHandler) CancelPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	paymentID := e.Request.PathValue("paymentId")

	if err := h.checkOwnership(e, paymentID); err != nil {
		return err
	}

	payment, err := h.payments.Cancel(e.Request.Context(), paymentID)
	if err != nil {
		return apiError(err)
	}

	recordPaymentAudit(h.app, payment)

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment cancelled",
		"data":    payment,
	})
}

// GetPayment - Get payment details
func (h *PaymentHandler) GetPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	paymentID := e.Request.PathValue("paymentId")

	payment, err := h.payments.Get(e.Request.Context(), paymentID)
	if err != nil {
		return apiError(err)
	}

	if payment.OwnerID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    payment,
	})
}

// ListPayments - List the caller's payments, newest first
func (h *PaymentHandler) ListPayments(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	page := parsePage(e)
	payments, total, err := h.payments.ListByOwner(e.Request.Context(), e.Auth.Id, page)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"data":       payments,
		"pagination": pagination(page, total),
	})
}

func (h *PaymentHandler) checkOwnership(e *core.RequestEvent, paymentID string) error {
	payment, err := h.payments.Get(e.Request.Context(), paymentID)
	if err != nil {
		return apiError(err)
	}
	if payment.OwnerID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}
	return nil
}

func parsePage(e *core.RequestEvent) store.Page {
	query := e.Request.URL.Query()

	page := store.Page{Number: 1, Size: 10}
	if v, err := strconv.Atoi(query.Get("page")); err == nil && v > 0 {
		page.Number = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		page.Size = v
	}
	return page
}

func pagination(page store.Page, total int) map[string]any {
	totalPages := 0
	if page.Size > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(page.Size)))
	}

	return map[string]any{
		"current_page": page.Number,
		"total_pages":  totalPages,
		"total":        total,
	}
}
