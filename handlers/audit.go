package handlers

import (
	"log/slog"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"foodpay/models"
)

// The payments and tickets collections mirror terminal outcomes for the admin
// UI. Writes are best-effort: the primary store already holds the record and
// its guarantees, so a failed mirror is logged and forgotten.

func recordPaymentAudit(app core.App, p *models.Payment) {
	collection, err := app.FindCollectionByNameOrId("payments")
	if err != nil {
		slog.Error("payment audit collection", "error", err)
		return
	}

	record, err := app.FindFirstRecordByData("payments", "payment_id", p.ID)
	if err != nil {
		record = core.NewRecord(collection)
	}

	record.Set("payment_id", p.ID)
	record.Set("owner_id", p.OwnerID)
	record.Set("amount", p.Amount.String())
	record.Set("currency", p.Currency)
	record.Set("status", string(p.Status))
	record.Set("transaction_id", p.TransactionID)
	record.Set("failure_reason", p.FailureReason)
	if p.CompletedAt != nil {
		record.Set("completed_at", p.CompletedAt.UTC().Format(time.RFC3339))
	}

	if err := app.Save(record); err != nil {
		slog.Error("payment audit save", "payment_id", p.ID, "error", err)
	}
}

func recordTicketAudit(app core.App, t *models.Ticket) {
	collection, err := app.FindCollectionByNameOrId("tickets")
	if err != nil {
		slog.Error("ticket audit collection", "error", err)
		return
	}

	record, err := app.FindFirstRecordByData("tickets", "ticket_number", t.Number)
	if err != nil {
		record = core.NewRecord(collection)
	}

	record.Set("ticket_number", t.Number)
	record.Set("verification_code", t.VerificationCode)
	record.Set("owner_id", t.OwnerID)
	record.Set("payment_id", t.PaymentID)
	record.Set("amount", t.Amount.String())
	record.Set("currency", t.Currency)
	record.Set("status", string(t.Status))
	record.Set("issue_date", t.IssueDate.UTC().Format(time.RFC3339))
	record.Set("expires_at", t.ExpiresAt.UTC().Format(time.RFC3339))

	if err := app.Save(record); err != nil {
		slog.Error("ticket audit save", "ticket_number", t.Number, "error", err)
	}
}
