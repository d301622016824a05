package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haber021/coop-kiosk-backend/pkg/enums"
)

// Transaction is the sale record. Monetary aggregates are derived by
// summing the item snapshots, never hand-set. Transactions are created
// pending, complete within the same unit of work, and may transition to
// cancelled exactly once on refund. They are never deleted.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TransactionNumber string                  `gorm:"column:transaction_number;not null;uniqueIndex"`
	MemberID          *uuid.UUID              `gorm:"column:member_id;type:uuid;index"`
	Member            *Member                 `gorm:"foreignKey:MemberID"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	VatableSale       decimal.Decimal         `gorm:"column:vatable_sale;type:numeric(12,2);not null;default:0"`
	VATAmount         decimal.Decimal         `gorm:"column:vat_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	AmountPaid        decimal.Decimal         `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	AmountFromBalance decimal.Decimal         `gorm:"column:amount_from_balance;type:numeric(12,2);not null;default:0"`
	AmountToUtang     decimal.Decimal         `gorm:"column:amount_to_utang;type:numeric(12,2);not null;default:0"`
	PatronageAmount   decimal.Decimal         `gorm:"column:patronage_amount;type:numeric(12,2);not null;default:0"`
	PatronageRate     decimal.Decimal         `gorm:"column:patronage_rate;type:numeric(6,4);not null;default:0.05"`
	Status            enums.TransactionStatus `gorm:"column:status;not null;default:'pending'"`
	IsRefund          bool                    `gorm:"column:is_refund;not null;default:false"`
	Notes             string                  `gorm:"column:notes;not null;default:''"`
	Items             []TransactionItem       `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// TransactionItem snapshots a sold line at sale time. Name, barcode and
// unit price are copied from the product so historical receipts survive
// later renames and reprices. Immutable after creation.
type TransactionItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID  uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index"`
	ProductID      *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	ProductName    string          `gorm:"column:product_name;not null"`
	ProductBarcode string          `gorm:"column:product_barcode;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity       int             `gorm:"column:quantity;not null;default:1"`
	TotalPrice     decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	VATAmount      decimal.Decimal `gorm:"column:vat_amount;type:numeric(12,2);not null;default:0"`
	VatableSale    decimal.Decimal `gorm:"column:vatable_sale;type:numeric(12,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
