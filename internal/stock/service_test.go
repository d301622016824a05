package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haber021/coop-kiosk-backend/pkg/db"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

func TestRefill(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	client := db.FromGorm(conn)
	svc, err := NewService(client, conn)
	require.NoError(t, err)
	ctx := context.Background()

	product := seedProduct(t, conn, "Rice 1kg", 3, true)

	result, err := svc.Refill(ctx, product.ID, 20, "Delivery 2026-08-05")
	require.NoError(t, err)
	assert.Equal(t, 3, result.StockBefore)
	assert.Equal(t, 23, result.StockAfter)

	var movement models.StockMovement
	require.NoError(t, conn.First(&movement, "product_id = ?", product.ID).Error)
	assert.Equal(t, enums.StockMovementIn, movement.Type)

	_, err = svc.Refill(ctx, product.ID, 0, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAdjust(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	client := db.FromGorm(conn)
	svc, err := NewService(client, conn)
	require.NoError(t, err)
	ctx := context.Background()

	product := seedProduct(t, conn, "Sugar 1kg", 10, true)

	result, err := svc.Adjust(ctx, product.ID, 4, "Stock count correction")
	require.NoError(t, err)
	assert.Equal(t, 10, result.StockBefore)
	assert.Equal(t, 4, result.StockAfter)
	assert.Equal(t, -6, result.Quantity)

	var movement models.StockMovement
	require.NoError(t, conn.First(&movement, "product_id = ?", product.ID).Error)
	assert.Equal(t, enums.StockMovementAdjustment, movement.Type)
	assert.Equal(t, -6, movement.Quantity)

	_, err = svc.Adjust(ctx, product.ID, -1, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Adjust(ctx, uuid.New(), 5, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListMovements(t *testing.T) {
	t.Parallel()
	conn := newTestDB(t)
	client := db.FromGorm(conn)
	svc, err := NewService(client, conn)
	require.NoError(t, err)
	ctx := context.Background()

	product := seedProduct(t, conn, "Cooking Oil", 10, true)
	_, err = svc.Refill(ctx, product.ID, 5, "first")
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, product.ID, 12, "second")
	require.NoError(t, err)

	movements, err := svc.ListMovements(ctx, product.ID, 10)
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	_, err = svc.ListMovements(ctx, uuid.New(), 10)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
