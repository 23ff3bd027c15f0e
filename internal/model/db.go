package model

import "time"

// Reservation is one row of the local ledger that stands in for the
// compare-and-set the inventory store does not offer. The primary key on
// ProductID means at most one in-flight checkout can hold a given product;
// a second insert fails on the uniqueness constraint.
type Reservation struct {
	ProductID     string `gorm:"primaryKey;size:64;not null"`
	HoldExpiresAt time.Time
	CreatedAt     time.Time
}

// WebhookEvent records a processed provider event id so redelivery of the
// same event never creates a second order.
type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
