package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haber021/coop-kiosk-backend/pkg/enums"
)

// StockMovement is the append-only audit trail of stock mutations.
// Exactly one row is written per product per sale and per refund
// restock; rows are never updated or deleted.
type StockMovement struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Type        enums.StockMovementType `gorm:"column:type;not null"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	StockBefore int                     `gorm:"column:stock_before;not null"`
	StockAfter  int                     `gorm:"column:stock_after;not null"`
	Notes       string                  `gorm:"column:notes;not null;default:''"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
