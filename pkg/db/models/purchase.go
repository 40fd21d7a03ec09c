package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase records a paid course order. The payments provider remains the
// source of truth for money; this table exists so internal metrics can join
// purchases against users without a network call.
type Purchase struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`
	Status      string    `gorm:"column:status;not null;default:'completed'"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

const (
	PurchaseStatusCompleted = "completed"
	PurchaseStatusRefunded  = "refunded"
)
