// Package settlement runs the checkout: one transaction that deducts
// stock, snapshots line items, settles payment through the member
// ledger and accrues patronage. Everything commits or nothing does.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/internal/members"
	"github.com/haber021/coop-kiosk-backend/internal/money"
	"github.com/haber021/coop-kiosk-backend/internal/stock"
	"github.com/haber021/coop-kiosk-backend/internal/transactions"
	"github.com/haber021/coop-kiosk-backend/pkg/db"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/metrics"
	"github.com/haber021/coop-kiosk-backend/pkg/txnumber"
)

const maxNumberAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type spendAuthorizer interface {
	AuthorizeMemberSpend(ctx context.Context, actor *models.Member, target *models.Member, pin string) error
}

// LineInput is one requested checkout line.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CheckoutInput carries everything the engine needs to settle a sale.
type CheckoutInput struct {
	Items         []LineInput
	PaymentMethod enums.PaymentMethod
	CashAmount    *decimal.Decimal
	MemberID      *uuid.UUID
	Actor         *models.Member
	PIN           string
}

// Receipt is the settled outcome handed back to the kiosk.
type Receipt struct {
	Transaction *models.Transaction
	Change      decimal.Decimal
	Member      *models.Member
}

// Service executes checkout settlement.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*Receipt, error)
}

type service struct {
	tx           txRunner
	txnRepo      transactions.Repository
	memberRepo   members.Repository
	authorizer   spendAuthorizer
	calc         *money.Calculator
	defaultRate  decimal.Decimal
	kioskMetrics *metrics.KioskMetrics
	numberFn     func(time.Time) (string, error)
	nowFn        func() time.Time
}

// ServiceParams collects the settlement dependencies.
type ServiceParams struct {
	Tx          txRunner
	TxnRepo     transactions.Repository
	MemberRepo  members.Repository
	Authorizer  spendAuthorizer
	Calculator  *money.Calculator
	DefaultRate decimal.Decimal
	Metrics     *metrics.KioskMetrics
}

// NewService builds the settlement engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.TxnRepo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if params.MemberRepo == nil {
		return nil, fmt.Errorf("member repository required")
	}
	if params.Authorizer == nil {
		return nil, fmt.Errorf("spend authorizer required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("money calculator required")
	}
	return &service{
		tx:           params.Tx,
		txnRepo:      params.TxnRepo,
		memberRepo:   params.MemberRepo,
		authorizer:   params.Authorizer,
		calc:         params.Calculator,
		defaultRate:  params.DefaultRate,
		kioskMetrics: params.Metrics,
		numberFn:     txnumber.New,
		nowFn:        time.Now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*Receipt, error) {
	started := s.nowFn()

	receipt, err := s.checkout(ctx, input)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.kioskMetrics.IncCheckoutFailure(string(typed.Code()))
		} else {
			s.kioskMetrics.IncCheckoutFailure(string(pkgerrors.CodeInternal))
		}
		return nil, err
	}

	s.kioskMetrics.ObserveCheckout(receipt.Transaction.PaymentMethod.String(), s.nowFn().Sub(started))
	if input.PaymentMethod == enums.PaymentMethodDebit && receipt.Transaction.PaymentMethod == enums.PaymentMethodCredit {
		s.kioskMetrics.IncUtangSpillover()
	}
	return receipt, nil
}

func (s *service) checkout(ctx context.Context, input CheckoutInput) (*Receipt, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	// receipt numbers carry a random suffix; a same-second collision on
	// the unique index retries the whole settlement with a fresh number
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := s.numberFn(s.nowFn())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating receipt number")
		}

		receipt, err := s.settle(ctx, input, number)
		if err != nil {
			if db.IsUniqueViolation(err, "transaction_number") || db.IsUniqueViolation(err, "idx_transactions_transaction_number") {
				lastErr = err
				continue
			}
			return nil, err
		}
		return receipt, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a receipt number")
}

func (s *service) validate(input CheckoutInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.PaymentMethod.IsMemberFunded() && input.MemberID == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "member-funded payment requires a scanned member card")
	}
	return nil
}

func (s *service) settle(ctx context.Context, input CheckoutInput, number string) (*Receipt, error) {
	var receipt *Receipt

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)
		memberRepo := s.memberRepo.WithTx(tx)

		var member *models.Member
		if input.MemberID != nil {
			loaded, err := memberRepo.FindByID(ctx, *input.MemberID)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
			}
			member = loaded
			if input.PaymentMethod.IsMemberFunded() {
				if err := s.authorizer.AuthorizeMemberSpend(ctx, input.Actor, member, input.PIN); err != nil {
					return err
				}
			}
		}

		requests := make([]stock.DeductionRequest, len(input.Items))
		for i, item := range input.Items {
			requests[i] = stock.DeductionRequest{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		deductions, err := stock.Deduct(ctx, tx, requests, "Sale "+number)
		if err != nil {
			return err
		}

		productByID := make(map[uuid.UUID]*models.Product, len(deductions))
		for _, deduction := range deductions {
			productByID[deduction.Product.ID] = deduction.Product
		}

		lines := make([]money.LineAmounts, 0, len(input.Items))
		items := make([]models.TransactionItem, 0, len(input.Items))
		for _, item := range input.Items {
			product := productByID[item.ProductID]
			line, err := s.calc.Line(product.Price, item.Quantity)
			if err != nil {
				return err
			}
			lines = append(lines, line)

			productID := product.ID
			items = append(items, models.TransactionItem{
				ID:             uuid.New(),
				ProductID:      &productID,
				ProductName:    product.Name,
				ProductBarcode: product.Barcode,
				UnitPrice:      product.Price,
				Quantity:       item.Quantity,
				TotalPrice:     line.TotalPrice,
				VATAmount:      line.VATAmount,
				VatableSale:    line.VatableSale,
			})
		}
		totals := money.Sum(lines)

		transaction := &models.Transaction{
			ID:                uuid.New(),
			TransactionNumber: number,
			Subtotal:          totals.Subtotal,
			VatableSale:       totals.VatableSale,
			VATAmount:         totals.VATAmount,
			TotalAmount:       totals.TotalAmount,
			PaymentMethod:     input.PaymentMethod,
			Status:            enums.TransactionStatusPending,
			PatronageRate:     s.defaultRate,
			Items:             items,
		}
		if member != nil {
			memberID := member.ID
			transaction.MemberID = &memberID
			transaction.PatronageRate = members.PatronageRateFor(member, s.defaultRate)
		}
		if err := txnRepo.Create(ctx, transaction); err != nil {
			return err
		}

		change := decimal.Zero
		switch input.PaymentMethod {
		case enums.PaymentMethodCash:
			// no tendered amount means exact payment
			transaction.AmountPaid = totals.TotalAmount
			if input.CashAmount != nil {
				change, err = money.Change(*input.CashAmount, totals.TotalAmount)
				if err != nil {
					return err
				}
				transaction.AmountPaid = *input.CashAmount
			}

		case enums.PaymentMethodDebit:
			result, err := members.DebitWithSpillover(ctx, tx, member.ID, totals.TotalAmount, "Sale "+number)
			if err != nil {
				return err
			}
			transaction.AmountFromBalance = result.FromBalance
			transaction.AmountToUtang = result.ToUtang
			if result.ToUtang.IsPositive() {
				// part of the sale went to utang, so the receipt shows credit
				transaction.PaymentMethod = enums.PaymentMethodCredit
			}
			member = result.Member

		case enums.PaymentMethodCredit:
			if _, err := members.AddUtang(ctx, tx, member.ID, totals.TotalAmount, "Sale "+number); err != nil {
				return err
			}
			transaction.AmountToUtang = totals.TotalAmount
		}

		if member != nil {
			patronage := totals.TotalAmount.Mul(transaction.PatronageRate).Round(2)
			transaction.PatronageAmount = patronage
			if err := members.AccruePatronage(ctx, tx, member.ID, patronage); err != nil {
				return err
			}
			if err := members.TouchLastTransaction(ctx, tx, member.ID, s.nowFn().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamping last transaction")
			}
		}

		transaction.Status = enums.TransactionStatusCompleted
		if err := tx.WithContext(ctx).Model(&models.Transaction{}).
			Where("id = ?", transaction.ID).
			Updates(map[string]any{
				"status":              transaction.Status,
				"payment_method":      transaction.PaymentMethod,
				"amount_paid":         transaction.AmountPaid,
				"amount_from_balance": transaction.AmountFromBalance,
				"amount_to_utang":     transaction.AmountToUtang,
				"patronage_amount":    transaction.PatronageAmount,
			}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing transaction")
		}

		if member != nil {
			reloaded, err := memberRepo.FindByID(ctx, member.ID)
			if err == nil {
				member = reloaded
			}
		}

		receipt = &Receipt{Transaction: transaction, Change: change, Member: member}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
