package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"foodpay/internal/store"
)

type AdminHandler struct {
	app     *pocketbase.PocketBase
	tickets store.TicketStore
}

func NewAdminHandler(app *pocketbase.PocketBase, tickets store.TicketStore) *AdminHandler {
	return &AdminHandler{
		app:     app,
		tickets: tickets,
	}
}

// GetStats - Funnel dashboard: payment outcomes from the audit collection
// plus the live ticket count from the primary store.
func (h *AdminHandler) GetStats(e *core.RequestEvent) error {
	if e.Auth == nil || !e.Auth.IsSuperuser() {
		return apis.NewForbiddenError("Access denied", nil)
	}

	ctx := e.Request.Context()

	var rows []dbx.NullStringMap
	if err := h.app.DB().NewQuery(
		"SELECT status, COUNT(*) AS count FROM payments GROUP BY status",
	).All(&rows); err != nil {
		log.Printf("Error querying payment stats: %v", err)
		return apis.NewApiError(http.StatusInternalServerError, "Internal error", nil)
	}

	paymentsByStatus := map[string]string{}
	for _, row := range rows {
		paymentsByStatus[row["status"].String] = row["count"].String
	}

	issued := 0
	if err := h.app.DB().NewQuery(
		"SELECT COUNT(*) AS count FROM tickets",
	).Row(&issued); err != nil {
		log.Printf("Error querying ticket stats: %v", err)
	}

	liveTickets, err := h.tickets.CountLive(ctx)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"payments_by_status": paymentsByStatus,
			"tickets_issued":     issued,
			"live_tickets":       liveTickets,
		},
	})
}
