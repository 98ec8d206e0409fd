package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `[{
			"name": "payments",
			"type": "base",
			"system": false,
			"fields": [
				{
					"name": "payment_id",
					"type": "text",
					"required": true,
					"presentable": true
				},
				{
					"name": "owner_id",
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
					"values": ["initiated", "processing", "success", "failed", "cancelled"]
				},
				{
					"name": "transaction_id",
					"type": "text"
				},
				{
					"name": "failure_reason",
					"type": "text"
				},
				{
					"name": "completed_at",
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
				"CREATE UNIQUE INDEX idx_payments_payment_id ON payments (payment_id)",
				"CREATE INDEX idx_payments_owner_id ON payments (owner_id)"
			]
		}]`

		return app.ImportCollectionsByMarshaledJSON([]byte(jsonData), false)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
