// Package members is the member account ledger. Balance, utang and
// patronage are mutated only through these functions so every centavo
// of member money has a matching balance_movements row.
package members

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

// SpilloverResult reports how a debit split across the two pools.
type SpilloverResult struct {
	FromBalance decimal.Decimal
	ToUtang     decimal.Decimal
	Member      *models.Member
}

// LockMember loads the member row under a row lock so read-modify-write
// stays serialized with concurrent checkouts.
func LockMember(ctx context.Context, tx *gorm.DB, memberID uuid.UUID) (*models.Member, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}

	qb := tx.WithContext(ctx)
	// sqlite has no row locks; its single writer gives the same guarantee in tests
	if tx.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var member models.Member
	if err := qb.First(&member, "id = ?", memberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking member")
	}
	return &member, nil
}

// Credit adds to the spendable balance and writes a deposit movement.
func Credit(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.BalanceMovement, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	member, err := LockMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}

	before := member.Balance
	member.Balance = member.Balance.Add(amount)
	if err := saveBalances(ctx, tx, member); err != nil {
		return nil, err
	}
	return writeMovement(ctx, tx, member, enums.BalanceMovementDeposit, amount, before, member.UtangBalance, notes)
}

// Debit removes from the spendable balance, failing when it cannot
// cover the amount. Settlement uses DebitWithSpillover instead.
func Debit(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.BalanceMovement, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	member, err := LockMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	if member.Balance.LessThan(amount) {
		return nil, insufficientFunds(member.Balance, amount)
	}

	before := member.Balance
	member.Balance = member.Balance.Sub(amount)
	if err := saveBalances(ctx, tx, member); err != nil {
		return nil, err
	}
	return writeMovement(ctx, tx, member, enums.BalanceMovementDeduction, amount, before, member.UtangBalance, notes)
}

// DebitWithSpillover takes as much of the amount as the balance covers
// and books the remainder as utang. Two movements when it splits: a
// deduction for the balance part, an utang_added for the spillover.
func DebitWithSpillover(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, amount decimal.Decimal, notes string) (*SpilloverResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	member, err := LockMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}

	fromBalance := decimal.Min(member.Balance, amount)
	toUtang := amount.Sub(fromBalance)

	if fromBalance.IsPositive() {
		balanceBefore := member.Balance
		member.Balance = member.Balance.Sub(fromBalance)
		if err := saveBalances(ctx, tx, member); err != nil {
			return nil, err
		}
		if _, err := writeMovement(ctx, tx, member, enums.BalanceMovementDeduction, fromBalance, balanceBefore, member.UtangBalance, notes); err != nil {
			return nil, err
		}
	}

	if toUtang.IsPositive() {
		utangBefore := member.UtangBalance
		member.UtangBalance = member.UtangBalance.Add(toUtang)
		if err := saveBalances(ctx, tx, member); err != nil {
			return nil, err
		}
		movement := &models.BalanceMovement{
			ID:            uuid.New(),
			MemberID:      member.ID,
			Type:          enums.BalanceMovementUtangAdded,
			Amount:        toUtang,
			BalanceBefore: member.Balance,
			BalanceAfter:  member.Balance,
			UtangBefore:   utangBefore,
			UtangAfter:    member.UtangBalance,
			Notes:         notes,
		}
		if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording balance movement")
		}
	}

	return &SpilloverResult{FromBalance: fromBalance, ToUtang: toUtang, Member: member}, nil
}

// AddUtang books the full amount as utang without touching the
// spendable balance. Used by credit sales where the member defers the
// whole total.
func AddUtang(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.BalanceMovement, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	member, err := LockMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}

	utangBefore := member.UtangBalance
	member.UtangBalance = member.UtangBalance.Add(amount)
	if err := saveBalances(ctx, tx, member); err != nil {
		return nil, err
	}

	movement := &models.BalanceMovement{
		ID:            uuid.New(),
		MemberID:      member.ID,
		Type:          enums.BalanceMovementUtangAdded,
		Amount:        amount,
		BalanceBefore: member.Balance,
		BalanceAfter:  member.Balance,
		UtangBefore:   utangBefore,
		UtangAfter:    member.UtangBalance,
		Notes:         notes,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording balance movement")
	}
	return movement, nil
}

// PayUtang reduces the outstanding utang and writes an utang_payment
// movement. Overpayment is rejected rather than credited.
func PayUtang(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.BalanceMovement, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	member, err := LockMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}
	if member.UtangBalance.LessThan(amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment exceeds outstanding utang")
	}

	utangBefore := member.UtangBalance
	member.UtangBalance = member.UtangBalance.Sub(amount)
	if err := saveBalances(ctx, tx, member); err != nil {
		return nil, err
	}

	movement := &models.BalanceMovement{
		ID:            uuid.New(),
		MemberID:      member.ID,
		Type:          enums.BalanceMovementUtangPayment,
		Amount:        amount,
		BalanceBefore: member.Balance,
		BalanceAfter:  member.Balance,
		UtangBefore:   utangBefore,
		UtangAfter:    member.UtangBalance,
		Notes:         notes,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording balance movement")
	}
	return movement, nil
}

// AccruePatronage grows the lifetime patronage figure. Patronage is
// monotonic: refunds do not claw it back, so no movement row is kept.
func AccruePatronage(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "patronage amount cannot be negative")
	}
	if amount.IsZero() {
		return nil
	}
	member, err := LockMember(ctx, tx, memberID)
	if err != nil {
		return err
	}
	member.TotalPatronage = member.TotalPatronage.Add(amount)
	return saveBalances(ctx, tx, member)
}

// TouchLastTransaction stamps the member's most recent sale time.
func TouchLastTransaction(ctx context.Context, tx *gorm.DB, memberID uuid.UUID, at time.Time) error {
	return tx.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", memberID).
		Update("last_transaction", at).Error
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}

func insufficientFunds(available, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient balance").WithDetails(map[string]string{
		"available": available.StringFixed(2),
		"requested": requested.StringFixed(2),
	})
}

func saveBalances(ctx context.Context, tx *gorm.DB, member *models.Member) error {
	if err := tx.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{
			"balance":         member.Balance,
			"utang_balance":   member.UtangBalance,
			"total_patronage": member.TotalPatronage,
		}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating member balances")
	}
	return nil
}

func writeMovement(ctx context.Context, tx *gorm.DB, member *models.Member, movementType enums.BalanceMovementType, amount, balanceBefore, utang decimal.Decimal, notes string) (*models.BalanceMovement, error) {
	movement := &models.BalanceMovement{
		ID:            uuid.New(),
		MemberID:      member.ID,
		Type:          movementType,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  member.Balance,
		UtangBefore:   utang,
		UtangAfter:    utang,
		Notes:         notes,
	}
	if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording balance movement")
	}
	return movement, nil
}
