package refunds

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/internal/members"
	"github.com/haber021/coop-kiosk-backend/internal/stock"
	"github.com/haber021/coop-kiosk-backend/internal/transactions"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RefundInput identifies the sale to reverse and who is asking.
type RefundInput struct {
	TransactionID uuid.UUID
	Reason        string
	Actor         *models.Member
}

// Receipt is the reversal payload. Balance deltas are zero for guest
// cash sales, which only restock and cancel.
type Receipt struct {
	Transaction   *models.Transaction
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

type Service interface {
	Refund(ctx context.Context, input RefundInput) (*Receipt, error)
}

type ServiceParams struct {
	Tx      txRunner
	TxnRepo transactions.Repository
	Metrics *metrics.KioskMetrics
}

type service struct {
	tx           txRunner
	txnRepo      transactions.Repository
	kioskMetrics *metrics.KioskMetrics
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.TxnRepo == nil {
		return nil, errors.New("transaction repository is required")
	}
	return &service{
		tx:           params.Tx,
		txnRepo:      params.TxnRepo,
		kioskMetrics: params.Metrics,
	}, nil
}

// Refund reverses a completed sale: restores stock for every surviving
// product reference, returns the full amount to the member's spendable
// balance whatever the original funding was, and cancels the sale. A
// second attempt on the same sale fails with a state conflict.
func (s *service) Refund(ctx context.Context, input RefundInput) (*Receipt, error) {
	receipt, err := s.refund(ctx, input)
	if err != nil {
		return nil, err
	}
	s.kioskMetrics.IncRefund()
	return receipt, nil
}

func (s *service) refund(ctx context.Context, input RefundInput) (*Receipt, error) {
	var receipt *Receipt

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txnRepo := s.txnRepo.WithTx(tx)

		transaction, err := txnRepo.FindByID(ctx, input.TransactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading transaction")
		}
		if err := authorize(input.Actor, transaction); err != nil {
			return err
		}
		if transaction.Status != enums.TransactionStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed transactions can be refunded").
				WithDetails(map[string]any{"status": transaction.Status.String()})
		}

		balanceBefore := decimal.Zero
		balanceAfter := decimal.Zero
		if transaction.MemberID != nil {
			member, err := members.LockMember(ctx, tx, *transaction.MemberID)
			if err != nil {
				return err
			}
			balanceBefore = member.Balance
			movement, err := members.Credit(ctx, tx, member.ID, transaction.TotalAmount, refundNotes(transaction))
			if err != nil {
				return err
			}
			balanceAfter = movement.BalanceAfter
		}

		restocks := make([]stock.DeductionRequest, 0, len(transaction.Items))
		for _, item := range transaction.Items {
			if item.ProductID == nil {
				// product was deleted after the sale; nothing to restock
				continue
			}
			restocks = append(restocks, stock.DeductionRequest{
				ProductID: *item.ProductID,
				Quantity:  item.Quantity,
			})
		}
		if len(restocks) > 0 {
			if _, err := stock.Restock(ctx, tx, restocks, refundNotes(transaction)); err != nil {
				return err
			}
		}

		notes := "Refunded."
		if input.Reason != "" {
			notes = "Refunded. " + input.Reason
		}
		if err := txnRepo.MarkRefunded(ctx, transaction.ID, notes); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction was already refunded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling transaction")
		}

		reloaded, err := txnRepo.FindByID(ctx, transaction.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading transaction")
		}
		receipt = &Receipt{
			Transaction:   reloaded,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// authorize admits staff and the owning member only.
func authorize(actor *models.Member, transaction *models.Transaction) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "refunds require an authenticated caller")
	}
	if actor.Role.IsStaff() {
		return nil
	}
	if transaction.MemberID != nil && *transaction.MemberID == actor.ID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "refunds require staff privileges or ownership of the sale")
}

func refundNotes(transaction *models.Transaction) string {
	return "Refund " + transaction.TransactionNumber
}
