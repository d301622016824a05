package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haber021/coop-kiosk-backend/pkg/enums"
)

// BalanceMovement is the append-only audit trail of member money
// mutations. Before/after snapshots cover both pools so a refund
// receipt can be reconstructed without replaying the ledger.
type BalanceMovement struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	MemberID      uuid.UUID                 `gorm:"column:member_id;type:uuid;not null;index"`
	Type          enums.BalanceMovementType `gorm:"column:type;not null"`
	Amount        decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceBefore decimal.Decimal           `gorm:"column:balance_before;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal           `gorm:"column:balance_after;type:numeric(12,2);not null"`
	UtangBefore   decimal.Decimal           `gorm:"column:utang_before;type:numeric(12,2);not null;default:0"`
	UtangAfter    decimal.Decimal           `gorm:"column:utang_after;type:numeric(12,2);not null;default:0"`
	Notes         string                    `gorm:"column:notes;not null;default:''"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
