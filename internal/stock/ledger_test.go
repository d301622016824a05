package stock

import (
	"context"
	"testing"

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
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.StockMovement{}))
	return conn
}

func seedProduct(t *testing.T, conn *gorm.DB, name string, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:            uuid.New(),
		Name:          name,
		Barcode:       uuid.NewString(),
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: stock,
		IsActive:      active,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestDeductWritesMovementAndDecrements(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, conn, "Sardines", 10, true)

	err := conn.Transaction(func(tx *gorm.DB) error {
		results, err := Deduct(ctx, tx, []DeductionRequest{{ProductID: product.ID, Quantity: 3}}, "Sale TXN1")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 10, results[0].StockBefore)
		assert.Equal(t, 7, results[0].StockAfter)
		return nil
	})
	require.NoError(t, err)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.StockQuantity)

	var movement models.StockMovement
	require.NoError(t, conn.First(&movement, "product_id = ?", product.ID).Error)
	assert.Equal(t, enums.StockMovementOut, movement.Type)
	assert.Equal(t, 3, movement.Quantity)
	assert.Equal(t, 10, movement.StockBefore)
	assert.Equal(t, 7, movement.StockAfter)
	assert.Equal(t, "Sale TXN1", movement.Notes)
}

func TestDeductMergesDuplicateLines(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, conn, "Noodles", 5, true)

	// two lines of the same product must validate against the combined qty
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := Deduct(ctx, tx, []DeductionRequest{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, Quantity: 3},
		}, "Sale TXN2")
		return err
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	shortfalls, ok := typed.Details().([]Shortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, 6, shortfalls[0].Requested)
	assert.Equal(t, 5, shortfalls[0].Available)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 5, reloaded.StockQuantity, "failed deduction must not change stock")
}

func TestDeductRejectsInactiveProduct(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, conn, "Retired Soap", 10, false)

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := Deduct(ctx, tx, []DeductionRequest{{ProductID: product.ID, Quantity: 1}}, "")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeductUnknownProduct(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := Deduct(ctx, tx, []DeductionRequest{{ProductID: uuid.New(), Quantity: 1}}, "")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestDeductValidatesRequests(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := Deduct(ctx, tx, nil, "")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	product := seedProduct(t, conn, "Rice", 10, true)
	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := Deduct(ctx, tx, []DeductionRequest{{ProductID: product.ID, Quantity: 0}}, "")
		return err
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRestockIncrementsInactiveProduct(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, conn, "Retired Soap", 2, false)

	err := conn.Transaction(func(tx *gorm.DB) error {
		results, err := Restock(ctx, tx, []DeductionRequest{{ProductID: product.ID, Quantity: 4}}, "Refund TXN3")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 6, results[0].StockAfter)
		return nil
	})
	require.NoError(t, err)

	var movement models.StockMovement
	require.NoError(t, conn.First(&movement, "product_id = ?", product.ID).Error)
	assert.Equal(t, enums.StockMovementIn, movement.Type)
	assert.Equal(t, "Refund TXN3", movement.Notes)
}
