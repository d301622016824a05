package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haber021/coop-kiosk-backend/api/responses"
	"github.com/haber021/coop-kiosk-backend/api/validators"
	"github.com/haber021/coop-kiosk-backend/internal/catalog"
	"github.com/haber021/coop-kiosk-backend/internal/stock"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
)

// AdminLowStock lists active products at or below their threshold.
func AdminLowStock(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductViews(products))
	}
}

type stockRefillBody struct {
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Notes    string `json:"notes" validate:"max=250"`
}

// AdminStockRefill adds inbound stock to a product.
func AdminStockRefill(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var body stockRefillBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refill(r.Context(), productID, body.Quantity, validators.SanitizeString(body.Notes, 250))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product":      newProductView(result.Product),
			"stock_before": result.StockBefore,
			"stock_after":  result.StockAfter,
		})
	}
}

type stockAdjustBody struct {
	NewQuantity *int   `json:"new_quantity" validate:"required,min=0"`
	Notes       string `json:"notes" validate:"max=250"`
}

// AdminStockAdjust sets a product's counter to an absolute value after
// a physical count.
func AdminStockAdjust(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var body stockAdjustBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Adjust(r.Context(), productID, *body.NewQuantity, validators.SanitizeString(body.Notes, 250))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product":      newProductView(result.Product),
			"stock_before": result.StockBefore,
			"stock_after":  result.StockAfter,
		})
	}
}

// AdminStockMovements lists a product's audit trail.
func AdminStockMovements(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movements, err := svc.ListMovements(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newStockMovementViews(movements))
	}
}
