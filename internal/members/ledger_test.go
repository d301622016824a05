package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:members_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.MemberType{}, &models.Member{}, &models.BalanceMovement{}))
	return conn
}

func seedMember(t *testing.T, conn *gorm.DB, balance, utang string) *models.Member {
	t.Helper()
	member := &models.Member{
		ID:             uuid.New(),
		RFIDCardNumber: uuid.NewString(),
		Username:       "member_" + uuid.NewString()[:8],
		FirstName:      "Maria",
		LastName:       "Santos",
		Role:           enums.MemberRoleMember,
		Balance:        decimal.RequireFromString(balance),
		UtangBalance:   decimal.RequireFromString(utang),
		TotalPatronage: decimal.Zero,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(member).Error)
	return member
}

func reloadMember(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.Member {
	t.Helper()
	var member models.Member
	require.NoError(t, conn.First(&member, "id = ?", id).Error)
	return &member
}

func TestCreditWritesDepositMovement(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "100.00", "0.00")

	err := conn.Transaction(func(tx *gorm.DB) error {
		movement, err := Credit(ctx, tx, member.ID, decimal.RequireFromString("50.00"), "Balance refill")
		require.NoError(t, err)
		assert.Equal(t, enums.BalanceMovementDeposit, movement.Type)
		assert.True(t, movement.BalanceBefore.Equal(decimal.RequireFromString("100.00")))
		assert.True(t, movement.BalanceAfter.Equal(decimal.RequireFromString("150.00")))
		return nil
	})
	require.NoError(t, err)

	reloaded := reloadMember(t, conn, member.ID)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("150.00")))
}

func TestDebitInsufficientFunds(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "10.00", "0.00")

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := Debit(ctx, tx, member.ID, decimal.RequireFromString("25.00"), "Sale")
		return err
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientFunds, typed.Code())

	reloaded := reloadMember(t, conn, member.ID)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestDebitWithSpilloverSplits(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "30.00", "0.00")

	err := conn.Transaction(func(tx *gorm.DB) error {
		result, err := DebitWithSpillover(ctx, tx, member.ID, decimal.RequireFromString("55.00"), "Sale TXN9")
		require.NoError(t, err)
		assert.True(t, result.FromBalance.Equal(decimal.RequireFromString("30.00")), "from balance %s", result.FromBalance)
		assert.True(t, result.ToUtang.Equal(decimal.RequireFromString("25.00")), "to utang %s", result.ToUtang)
		return nil
	})
	require.NoError(t, err)

	reloaded := reloadMember(t, conn, member.ID)
	assert.True(t, reloaded.Balance.IsZero())
	assert.True(t, reloaded.UtangBalance.Equal(decimal.RequireFromString("25.00")))

	var movements []models.BalanceMovement
	require.NoError(t, conn.Where("member_id = ?", member.ID).Order("created_at ASC").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, enums.BalanceMovementDeduction, movements[0].Type)
	assert.True(t, movements[0].Amount.Equal(decimal.RequireFromString("30.00")))
	assert.Equal(t, enums.BalanceMovementUtangAdded, movements[1].Type)
	assert.True(t, movements[1].Amount.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, movements[1].UtangBefore.IsZero())
	assert.True(t, movements[1].UtangAfter.Equal(decimal.RequireFromString("25.00")))
}

func TestDebitWithSpilloverFullyCovered(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "100.00", "0.00")

	err := conn.Transaction(func(tx *gorm.DB) error {
		result, err := DebitWithSpillover(ctx, tx, member.ID, decimal.RequireFromString("60.00"), "Sale")
		require.NoError(t, err)
		assert.True(t, result.ToUtang.IsZero())
		return nil
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&models.BalanceMovement{}).Where("member_id = ?", member.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "no utang movement when the balance covers the sale")
}

func TestPayUtang(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "0.00", "40.00")

	err := conn.Transaction(func(tx *gorm.DB) error {
		movement, err := PayUtang(ctx, tx, member.ID, decimal.RequireFromString("15.00"), "Utang payment")
		require.NoError(t, err)
		assert.Equal(t, enums.BalanceMovementUtangPayment, movement.Type)
		assert.True(t, movement.UtangBefore.Equal(decimal.RequireFromString("40.00")))
		assert.True(t, movement.UtangAfter.Equal(decimal.RequireFromString("25.00")))
		return nil
	})
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := PayUtang(ctx, tx, member.ID, decimal.RequireFromString("100.00"), "too much")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAccruePatronageIsMonotonic(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "0.00", "0.00")

	err := conn.Transaction(func(tx *gorm.DB) error {
		return AccruePatronage(ctx, tx, member.ID, decimal.RequireFromString("5.50"))
	})
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		return AccruePatronage(ctx, tx, member.ID, decimal.RequireFromString("-1.00"))
	})
	require.Error(t, err)

	reloaded := reloadMember(t, conn, member.ID)
	assert.True(t, reloaded.TotalPatronage.Equal(decimal.RequireFromString("5.50")))

	var count int64
	require.NoError(t, conn.Model(&models.BalanceMovement{}).Where("member_id = ?", member.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count, "patronage accrual keeps no movement row")
}

func TestTouchLastTransaction(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	member := seedMember(t, conn, "0.00", "0.00")

	at := time.Now().UTC().Truncate(time.Second)
	err := conn.Transaction(func(tx *gorm.DB) error {
		return TouchLastTransaction(ctx, tx, member.ID, at)
	})
	require.NoError(t, err)

	reloaded := reloadMember(t, conn, member.ID)
	require.NotNil(t, reloaded.LastTransaction)
	assert.True(t, reloaded.LastTransaction.Equal(at))
}

func TestLockMemberUnknown(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := LockMember(ctx, tx, uuid.New())
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
