package transactions

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
	dsn := "file:transactions_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.MemberType{},
		&models.Member{},
		&models.Transaction{},
		&models.TransactionItem{},
	))
	return conn
}

func seedTransaction(t *testing.T, conn *gorm.DB, number string, memberID *uuid.UUID, method enums.PaymentMethod, status enums.TransactionStatus, createdAt time.Time) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		ID:                uuid.New(),
		TransactionNumber: number,
		MemberID:          memberID,
		TotalAmount:       decimal.RequireFromString("10.00"),
		PaymentMethod:     method,
		Status:            status,
		CreatedAt:         createdAt,
	}
	require.NoError(t, conn.Create(txn).Error)
	return txn
}

func TestListFilters(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	memberID := uuid.New()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	seedTransaction(t, conn, "TXN-A", &memberID, enums.PaymentMethodCash, enums.TransactionStatusCompleted, base)
	seedTransaction(t, conn, "TXN-B", &memberID, enums.PaymentMethodDebit, enums.TransactionStatusCompleted, base.Add(time.Hour))
	seedTransaction(t, conn, "TXN-C", nil, enums.PaymentMethodCash, enums.TransactionStatusCancelled, base.Add(2*time.Hour))

	byMember, err := repo.List(ctx, ListFilter{MemberID: &memberID})
	require.NoError(t, err)
	assert.Len(t, byMember, 2)
	assert.Equal(t, "TXN-B", byMember[0].TransactionNumber, "newest first")

	cancelled := enums.TransactionStatusCancelled
	byStatus, err := repo.List(ctx, ListFilter{Status: &cancelled})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "TXN-C", byStatus[0].TransactionNumber)

	debit := enums.PaymentMethodDebit
	byMethod, err := repo.List(ctx, ListFilter{PaymentMethod: &debit})
	require.NoError(t, err)
	require.Len(t, byMethod, 1)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	byWindow, err := repo.List(ctx, ListFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	assert.Equal(t, "TXN-B", byWindow[0].TransactionNumber)

	limited, err := repo.List(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMarkRefundedGuardsStatus(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	txn := seedTransaction(t, conn, "TXN-R", nil, enums.PaymentMethodCash, enums.TransactionStatusCompleted, time.Now().UTC())

	require.NoError(t, repo.MarkRefunded(ctx, txn.ID, "Refunded. test"))

	var reloaded models.Transaction
	require.NoError(t, conn.First(&reloaded, "id = ?", txn.ID).Error)
	assert.Equal(t, enums.TransactionStatusCancelled, reloaded.Status)
	assert.True(t, reloaded.IsRefund)
	assert.Equal(t, "Refunded. test", reloaded.Notes)

	err := repo.MarkRefunded(ctx, txn.ID, "Refunded. again")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "second refund must not match the status guard")
}

func TestServiceLookups(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	ctx := context.Background()

	txn := seedTransaction(t, conn, "TXN-Z", nil, enums.PaymentMethodCash, enums.TransactionStatusCompleted, time.Now().UTC())

	byID, err := svc.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "TXN-Z", byID.TransactionNumber)

	byNumber, err := svc.GetByNumber(ctx, " TXN-Z ")
	require.NoError(t, err)
	assert.Equal(t, txn.ID, byNumber.ID)

	_, err = svc.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.GetByNumber(ctx, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
