package client

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"print-checkout-backend/internal/model"
)

// InitSqliteClient opens the local ledger database. Only the reservation
// ledger and the processed-webhook-event table live here; everything the
// shop sells stays in the inventory store.
func InitSqliteClient(path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to open ledger database:", err)
	}

	if err := db.AutoMigrate(
		&model.Reservation{},
		&model.WebhookEvent{},
	); err != nil {
		log.Fatal(err)
	}

	return db
}
