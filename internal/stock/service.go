package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the admin-facing stock operations. Checkout and
// refund flows call Deduct/Restock directly inside their own
// transactions.
type Service interface {
	Refill(ctx context.Context, productID uuid.UUID, quantity int, notes string) (*DeductionResult, error)
	Adjust(ctx context.Context, productID uuid.UUID, newQuantity int, notes string) (*DeductionResult, error)
	ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error)
}

type service struct {
	tx txRunner
	db *gorm.DB
}

// NewService wires the stock service with a transaction runner and a
// read connection.
func NewService(tx txRunner, db *gorm.DB) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if db == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &service{tx: tx, db: db}, nil
}

func (s *service) Refill(ctx context.Context, productID uuid.UUID, quantity int, notes string) (*DeductionResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refill quantity must be positive")
	}

	var result *DeductionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		results, err := Restock(ctx, tx, []DeductionRequest{{ProductID: productID, Quantity: quantity}}, notes)
		if err != nil {
			return err
		}
		result = &results[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Adjust sets the absolute stock quantity, recording the delta as an
// adjustment movement.
func (s *service) Adjust(ctx context.Context, productID uuid.UUID, newQuantity int, notes string) (*DeductionResult, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if newQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}

	var result *DeductionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := lockProducts(ctx, tx, []uuid.UUID{productID})
		if err != nil {
			return err
		}
		product, ok := products[productID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		before := product.StockQuantity
		if err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock_quantity", newQuantity).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating stock quantity")
		}
		product.StockQuantity = newQuantity

		movement := &models.StockMovement{
			ID:          uuid.New(),
			ProductID:   product.ID,
			Type:        enums.StockMovementAdjustment,
			Quantity:    newQuantity - before,
			StockBefore: before,
			StockAfter:  newQuantity,
			Notes:       notes,
		}
		if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording stock movement")
		}

		result = &DeductionResult{
			Product:     product,
			Quantity:    newQuantity - before,
			StockBefore: before,
			StockAfter:  newQuantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListMovements(ctx context.Context, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	var movements []models.StockMovement
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stock movements")
	}
	return movements, nil
}
