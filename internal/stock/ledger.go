// Package stock is the append-only stock ledger. Every quantity change
// goes through here so stock_movements stays a faithful audit trail.
package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

// DeductionRequest asks the ledger to remove quantity for one product.
type DeductionRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// DeductionResult reports the applied change and the product snapshot
// taken under lock.
type DeductionResult struct {
	Product     *models.Product
	Quantity    int
	StockBefore int
	StockAfter  int
}

// Shortfall describes one product that could not cover the requested
// quantity. Returned as error details so the kiosk can show the cashier
// exactly what ran out.
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Deduct locks the affected products, validates availability against the
// merged quantities and decrements stock, writing one "out" movement per
// product. All-or-nothing: any shortfall fails the whole call.
//
// Requests for the same product are merged so two lines of one product
// are validated against the combined quantity. Lock order is ascending
// product id, which keeps concurrent checkouts from deadlocking.
func Deduct(ctx context.Context, tx *gorm.DB, requests []DeductionRequest, notes string) ([]DeductionResult, error) {
	merged, order, err := mergeRequests(requests)
	if err != nil {
		return nil, err
	}

	products, err := lockProducts(ctx, tx, order)
	if err != nil {
		return nil, err
	}

	var shortfalls []Shortfall
	for _, id := range order {
		product, ok := products[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %q is inactive", product.Name))
		}
		if product.StockQuantity < merged[id] {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: merged[id],
				Available: product.StockQuantity,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(shortfalls)
	}

	results := make([]DeductionResult, 0, len(order))
	for _, id := range order {
		product := products[id]
		before := product.StockQuantity
		after := before - merged[id]

		if err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock_quantity", after).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating stock quantity")
		}
		product.StockQuantity = after

		movement := &models.StockMovement{
			ID:          uuid.New(),
			ProductID:   product.ID,
			Type:        enums.StockMovementOut,
			Quantity:    merged[id],
			StockBefore: before,
			StockAfter:  after,
			Notes:       notes,
		}
		if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording stock movement")
		}

		results = append(results, DeductionResult{
			Product:     product,
			Quantity:    merged[id],
			StockBefore: before,
			StockAfter:  after,
		})
	}
	return results, nil
}

// Restock locks the affected products and adds quantity back, writing
// one "in" movement per product. Inactive products restock too; a
// refund must not lose inventory because the item was retired.
func Restock(ctx context.Context, tx *gorm.DB, requests []DeductionRequest, notes string) ([]DeductionResult, error) {
	merged, order, err := mergeRequests(requests)
	if err != nil {
		return nil, err
	}

	products, err := lockProducts(ctx, tx, order)
	if err != nil {
		return nil, err
	}

	results := make([]DeductionResult, 0, len(order))
	for _, id := range order {
		product, ok := products[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
		before := product.StockQuantity
		after := before + merged[id]

		if err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ?", product.ID).
			Update("stock_quantity", after).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating stock quantity")
		}
		product.StockQuantity = after

		movement := &models.StockMovement{
			ID:          uuid.New(),
			ProductID:   product.ID,
			Type:        enums.StockMovementIn,
			Quantity:    merged[id],
			StockBefore: before,
			StockAfter:  after,
			Notes:       notes,
		}
		if err := tx.WithContext(ctx).Create(movement).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording stock movement")
		}

		results = append(results, DeductionResult{
			Product:     product,
			Quantity:    merged[id],
			StockBefore: before,
			StockAfter:  after,
		})
	}
	return results, nil
}

func mergeRequests(requests []DeductionRequest) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(requests) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	merged := make(map[uuid.UUID]int, len(requests))
	order := make([]uuid.UUID, 0, len(requests))
	for _, request := range requests {
		if request.ProductID == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if request.Quantity <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, seen := merged[request.ProductID]; !seen {
			order = append(order, request.ProductID)
		}
		merged[request.ProductID] += request.Quantity
	}
	return merged, order, nil
}

func lockProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	qb := tx.WithContext(ctx)
	// sqlite has no row locks; its single writer gives the same guarantee in tests
	if tx.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.Product
	if err := qb.
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking products")
	}

	products := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}
