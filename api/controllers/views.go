package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
)

// memberView is the wire shape for a member. The PIN hash never leaves
// the server.
type memberView struct {
	ID             uuid.UUID       `json:"id"`
	RFIDCardNumber string          `json:"rfid_card_number"`
	Username       string          `json:"username"`
	FullName       string          `json:"full_name"`
	Role           string          `json:"role"`
	MemberType     *string         `json:"member_type,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	UtangBalance   decimal.Decimal `json:"utang_balance"`
	TotalPatronage decimal.Decimal `json:"total_patronage"`
	HasPIN         bool            `json:"has_pin"`
	IsActive       bool            `json:"is_active"`
}

func newMemberView(member *models.Member) *memberView {
	if member == nil {
		return nil
	}
	view := &memberView{
		ID:             member.ID,
		RFIDCardNumber: member.RFIDCardNumber,
		Username:       member.Username,
		FullName:       member.FullName(),
		Role:           string(member.Role),
		Balance:        member.Balance,
		UtangBalance:   member.UtangBalance,
		TotalPatronage: member.TotalPatronage,
		HasPIN:         member.PINHash != nil,
		IsActive:       member.IsActive,
	}
	if member.MemberType != nil {
		name := member.MemberType.Name
		view.MemberType = &name
	}
	return view
}

type productView struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Barcode           string          `json:"barcode"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	IsActive          bool            `json:"is_active"`
}

func newProductView(product *models.Product) *productView {
	if product == nil {
		return nil
	}
	return &productView{
		ID:                product.ID,
		Name:              product.Name,
		Barcode:           product.Barcode,
		Price:             product.Price,
		StockQuantity:     product.StockQuantity,
		LowStockThreshold: product.LowStockThreshold,
		IsActive:          product.IsActive,
	}
}

func newProductViews(products []models.Product) []productView {
	views := make([]productView, len(products))
	for i := range products {
		views[i] = *newProductView(&products[i])
	}
	return views
}

type transactionItemView struct {
	ProductID      *uuid.UUID      `json:"product_id,omitempty"`
	ProductName    string          `json:"product_name"`
	ProductBarcode string          `json:"product_barcode"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	VatableSale    decimal.Decimal `json:"vatable_sale"`
}

type transactionView struct {
	ID                uuid.UUID             `json:"id"`
	TransactionNumber string                `json:"transaction_number"`
	MemberID          *uuid.UUID            `json:"member_id,omitempty"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	VatableSale       decimal.Decimal       `json:"vatable_sale"`
	VATAmount         decimal.Decimal       `json:"vat_amount"`
	TotalAmount       decimal.Decimal       `json:"total_amount"`
	PaymentMethod     string                `json:"payment_method"`
	AmountPaid        decimal.Decimal       `json:"amount_paid"`
	AmountFromBalance decimal.Decimal       `json:"amount_from_balance"`
	AmountToUtang     decimal.Decimal       `json:"amount_to_utang"`
	PatronageAmount   decimal.Decimal       `json:"patronage_amount"`
	PatronageRate     decimal.Decimal       `json:"patronage_rate"`
	Status            string                `json:"status"`
	IsRefund          bool                  `json:"is_refund"`
	Notes             string                `json:"notes,omitempty"`
	Items             []transactionItemView `json:"items"`
	CreatedAt         time.Time             `json:"created_at"`
}

func newTransactionView(transaction *models.Transaction) *transactionView {
	if transaction == nil {
		return nil
	}
	items := make([]transactionItemView, len(transaction.Items))
	for i, item := range transaction.Items {
		items[i] = transactionItemView{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductBarcode: item.ProductBarcode,
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			TotalPrice:     item.TotalPrice,
			VATAmount:      item.VATAmount,
			VatableSale:    item.VatableSale,
		}
	}
	return &transactionView{
		ID:                transaction.ID,
		TransactionNumber: transaction.TransactionNumber,
		MemberID:          transaction.MemberID,
		Subtotal:          transaction.Subtotal,
		VatableSale:       transaction.VatableSale,
		VATAmount:         transaction.VATAmount,
		TotalAmount:       transaction.TotalAmount,
		PaymentMethod:     string(transaction.PaymentMethod),
		AmountPaid:        transaction.AmountPaid,
		AmountFromBalance: transaction.AmountFromBalance,
		AmountToUtang:     transaction.AmountToUtang,
		PatronageAmount:   transaction.PatronageAmount,
		PatronageRate:     transaction.PatronageRate,
		Status:            string(transaction.Status),
		IsRefund:          transaction.IsRefund,
		Notes:             transaction.Notes,
		Items:             items,
		CreatedAt:         transaction.CreatedAt,
	}
}

func newTransactionViews(records []models.Transaction) []transactionView {
	views := make([]transactionView, len(records))
	for i := range records {
		views[i] = *newTransactionView(&records[i])
	}
	return views
}

type balanceMovementView struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	UtangBefore   decimal.Decimal `json:"utang_before"`
	UtangAfter    decimal.Decimal `json:"utang_after"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newBalanceMovementViews(movements []models.BalanceMovement) []balanceMovementView {
	views := make([]balanceMovementView, len(movements))
	for i, movement := range movements {
		views[i] = balanceMovementView{
			ID:            movement.ID,
			Type:          string(movement.Type),
			Amount:        movement.Amount,
			BalanceBefore: movement.BalanceBefore,
			BalanceAfter:  movement.BalanceAfter,
			UtangBefore:   movement.UtangBefore,
			UtangAfter:    movement.UtangAfter,
			Notes:         movement.Notes,
			CreatedAt:     movement.CreatedAt,
		}
	}
	return views
}

type stockMovementView struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newStockMovementViews(movements []models.StockMovement) []stockMovementView {
	views := make([]stockMovementView, len(movements))
	for i, movement := range movements {
		views[i] = stockMovementView{
			ID:          movement.ID,
			ProductID:   movement.ProductID,
			Type:        string(movement.Type),
			Quantity:    movement.Quantity,
			StockBefore: movement.StockBefore,
			StockAfter:  movement.StockAfter,
			Notes:       movement.Notes,
			CreatedAt:   movement.CreatedAt,
		}
	}
	return views
}
