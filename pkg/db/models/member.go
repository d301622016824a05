package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haber021/coop-kiosk-backend/pkg/enums"
)

// MemberType carries the patronage rate snapshot source for a class of
// members.
type MemberType struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Description   string          `gorm:"column:description;not null;default:''"`
	PatronageRate decimal.Decimal `gorm:"column:patronage_rate;type:numeric(6,4);not null;default:0.05"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Member holds the three money pools: spendable balance, outstanding
// utang, and lifetime patronage. All three are mutated only through the
// member ledger.
type Member struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	RFIDCardNumber  string           `gorm:"column:rfid_card_number;not null;uniqueIndex"`
	Username        string           `gorm:"column:username;not null;uniqueIndex"`
	PINHash         *string          `gorm:"column:pin_hash"`
	FirstName       string           `gorm:"column:first_name;not null"`
	LastName        string           `gorm:"column:last_name;not null"`
	Email           *string          `gorm:"column:email"`
	Phone           string           `gorm:"column:phone;not null;default:''"`
	MemberTypeID    *uuid.UUID       `gorm:"column:member_type_id;type:uuid"`
	MemberType      *MemberType      `gorm:"foreignKey:MemberTypeID"`
	Role            enums.MemberRole `gorm:"column:role;not null;default:'member'"`
	Balance         decimal.Decimal  `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	UtangBalance    decimal.Decimal  `gorm:"column:utang_balance;type:numeric(12,2);not null;default:0"`
	TotalPatronage  decimal.Decimal  `gorm:"column:total_patronage;type:numeric(12,2);not null;default:0"`
	IsActive        bool             `gorm:"column:is_active;not null;default:true"`
	LastTransaction *time.Time       `gorm:"column:last_transaction"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// FullName joins the name parts for receipts and search results.
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}
