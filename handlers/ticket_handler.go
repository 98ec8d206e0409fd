package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"foodpay/internal/status"
	"foodpay/models"
	"foodpay/services"
)

type TicketHandler struct {
	app       *pocketbase.PocketBase
	tickets   *services.TicketService
	validator *services.RedemptionValidator
}

func NewTicketHandler(app *pocketbase.PocketBase, tickets *services.TicketService, validator *services.RedemptionValidator) *TicketHandler {
	return &TicketHandler{
		app:       app,
		tickets:   tickets,
		validator: validator,
	}
}

// IssueTicket - Issue the ticket backed by a successful payment. Re-issuance
// returns the existing ticket instead of an error.
func (h *TicketHandler) IssueTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		PaymentID string `json:"payment_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ctx := e.Request.Context()

	ticket, err := h.tickets.Issue(ctx, req.PaymentID)
	if errors.Is(err, status.ErrTicketAlreadyExists) {
		existing, getErr := h.tickets.GetByPayment(ctx, req.PaymentID)
		if getErr != nil {
			return apiError(getErr)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"success": true,
			"message": "Ticket already issued for this payment",
			"data":    existing,
		})
	}
	if err != nil {
		return apiError(err)
	}

	recordTicketAudit(h.app, ticket)

	return e.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Ticket generated successfully",
		"data":    ticket,
	})
}

// GetTicket - Get ticket details by ticket number
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketNumber := e.Request.PathValue("ticketNumber")

	ticket, err := h.tickets.Get(e.Request.Context(), ticketNumber)
	if err != nil {
		return apiError(err)
	}

	if ticket.OwnerID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    ticket,
	})
}

// ListTickets - List the caller's tickets, newest first
func (h *TicketHandler) ListTickets(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	page := parsePage(e)
	tickets, total, err := h.tickets.ListByOwner(e.Request.Context(), e.Auth.Id, page)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"data":       tickets,
		"pagination": pagination(page, total),
	})
}

// SetTicketStatus - Cancel or refund a confirmed ticket
func (h *TicketHandler) SetTicketStatus(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketNumber := e.Request.PathValue("ticketNumber")

	var req struct {
		Status string `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ctx := e.Request.Context()

	current, err := h.tickets.Get(ctx, ticketNumber)
	if err != nil {
		return apiError(err)
	}
	if current.OwnerID != e.Auth.Id {
		return apis.NewForbiddenError("Access denied", nil)
	}

	ticket, err := h.tickets.SetStatus(ctx, ticketNumber, models.TicketStatus(req.Status))
	if err != nil {
		return apiError(err)
	}

	recordTicketAudit(h.app, ticket)

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Ticket status updated",
		"data":    ticket,
	})
}

// ValidateTicket - Redemption check: status first, then expiry
func (h *TicketHandler) ValidateTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ticketNumber := e.Request.PathValue("ticketNumber")

	var req struct {
		VerificationCode string `json:"verification_code"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ctx := e.Request.Context()

	var result *services.ValidationResult
	var err error
	if req.VerificationCode != "" {
		result, err = h.validator.ValidateWithCode(ctx, ticketNumber, req.VerificationCode)
	} else {
		result, err = h.validator.Validate(ctx, ticketNumber)
	}
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    result,
	})
}
