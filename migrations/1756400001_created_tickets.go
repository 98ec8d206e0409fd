package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `[{
			"name": "tickets",
			"type": "base",
			"system": false,
			"fields": [
				{
					"name": "ticket_number",
					"type": "text",
					"required": true,
					"presentable": true
				},
				{
					"name": "verification_code",
					"type": "text",
					"required": true
				},
				{
					"name": "owner_id",
					"type": "text",
					"required": true
				},
				{
					"name": "payment_id",
					"type": "text",
					"required": true
				},
				{
					"name": "amount",
					"type": "text",
					"required": true
				},
				{
					"name": "currency",
					"type": "text",
					"required": true
				},
				{
					"name": "status",
					"type": "select",
					"required": true,
					"maxSelect": 1,
					"values": ["confirmed", "cancelled", "refunded"]
				},
				{
					"name": "issue_date",
					"type": "date"
				},
				{
					"name": "expires_at",
					"type": "date"
				},
				{
					"name": "created",
					"type": "autodate",
					"onCreate": true
				},
				{
					"name": "updated",
					"type": "autodate",
					"onCreate": true,
					"onUpdate": true
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX idx_tickets_ticket_number ON tickets (ticket_number)",
				"CREATE UNIQUE INDEX idx_tickets_payment_id ON tickets (payment_id)",
				"CREATE UNIQUE INDEX idx_tickets_verification_code ON tickets (verification_code)"
			]
		}]`

		return app.ImportCollectionsByMarshaledJSON([]byte(jsonData), false)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
