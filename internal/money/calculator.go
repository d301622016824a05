// Package money decomposes line and receipt amounts under VAT-inclusive
// pricing. All prices already include VAT; the calculator extracts the
// tax portion rather than adding it on top.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
)

// Calculator derives line and receipt amounts for a fixed VAT rate.
type Calculator struct {
	vatRate     decimal.Decimal
	maxQuantity int
}

// LineAmounts is the rounded money decomposition of a single sold line.
type LineAmounts struct {
	UnitPrice   decimal.Decimal
	Quantity    int
	TotalPrice  decimal.Decimal
	VATAmount   decimal.Decimal
	VatableSale decimal.Decimal
}

// ReceiptTotals aggregates already-rounded line amounts. Summing the
// rounded values keeps receipt arithmetic consistent with the printed
// lines even when it drifts a centavo from recomputing on the raw sum.
type ReceiptTotals struct {
	Subtotal    decimal.Decimal
	VatableSale decimal.Decimal
	VATAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// NewCalculator validates the VAT rate and line quantity cap.
func NewCalculator(vatRate decimal.Decimal, maxQuantity int) (*Calculator, error) {
	if vatRate.IsNegative() || vatRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vat rate must be in [0, 1)")
	}
	if maxQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max line quantity must be positive")
	}
	return &Calculator{vatRate: vatRate, maxQuantity: maxQuantity}, nil
}

// Line computes the rounded amounts for one sold line.
//
// The total is rounded first, VAT is rounded off the rounded total, and
// the vatable sale is the remainder. Deriving vatable by subtraction
// guarantees vatable + vat == total on every line.
func (c *Calculator) Line(unitPrice decimal.Decimal, quantity int) (LineAmounts, error) {
	if unitPrice.IsNegative() {
		return LineAmounts{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if quantity <= 0 {
		return LineAmounts{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if quantity > c.maxQuantity {
		return LineAmounts{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity exceeds maximum of %d", c.maxQuantity))
	}

	total := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	vat := total.Mul(c.vatRate).Round(2)
	vatable := total.Sub(vat)

	return LineAmounts{
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		TotalPrice:  total,
		VATAmount:   vat,
		VatableSale: vatable,
	}, nil
}

// Sum folds rounded line amounts into receipt totals.
func Sum(lines []LineAmounts) ReceiptTotals {
	totals := ReceiptTotals{
		Subtotal:    decimal.Zero,
		VatableSale: decimal.Zero,
		VATAmount:   decimal.Zero,
		TotalAmount: decimal.Zero,
	}
	for _, line := range lines {
		totals.Subtotal = totals.Subtotal.Add(line.TotalPrice)
		totals.VatableSale = totals.VatableSale.Add(line.VatableSale)
		totals.VATAmount = totals.VATAmount.Add(line.VATAmount)
	}
	totals.TotalAmount = totals.Subtotal
	return totals
}

// Change returns amountPaid minus total, rejecting underpayment.
func Change(amountPaid, total decimal.Decimal) (decimal.Decimal, error) {
	if amountPaid.LessThan(total) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount paid is less than the total due")
	}
	return amountPaid.Sub(total), nil
}
