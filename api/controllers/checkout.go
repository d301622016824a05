package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haber021/coop-kiosk-backend/api/middleware"
	"github.com/haber021/coop-kiosk-backend/api/responses"
	"github.com/haber021/coop-kiosk-backend/api/validators"
	"github.com/haber021/coop-kiosk-backend/internal/scan"
	"github.com/haber021/coop-kiosk-backend/internal/settlement"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
)

type checkoutLineBody struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type checkoutBody struct {
	TerminalID    string             `json:"terminal_id"`
	MemberID      *uuid.UUID         `json:"member_id"`
	Items         []checkoutLineBody `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string             `json:"payment_method" validate:"required"`
	PIN           string             `json:"pin"`
	CashAmount    *decimal.Decimal   `json:"cash_amount"`
}

// Checkout settles a cart. Member-funded payments resolve the member
// from the request body or, failing that, from the terminal's scan
// session; the session is cleared only after the sale commits.
func Checkout(settlementSvc settlement.Service, scanSvc scan.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settlementSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var body checkoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		memberID := body.MemberID
		fromSession := false
		if memberID == nil && body.TerminalID != "" && scanSvc != nil {
			scanned, err := scanSvc.Active(r.Context(), body.TerminalID)
			if err == nil {
				memberID = &scanned
				fromSession = true
			} else if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		actor := middleware.ActorFromContext(r.Context())

		// A member funding their own sale must still be the one whose
		// card is on the terminal; staff at the till vouch instead.
		if memberID != nil && !fromSession && method.IsMemberFunded() &&
			(actor == nil || !actor.Role.IsStaff()) {
			if scanSvc == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "no active card scan; scan the member card first"))
				return
			}
			scanned, err := scanSvc.Active(r.Context(), body.TerminalID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if scanned != *memberID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "scanned card does not match the paying member"))
				return
			}
			fromSession = true
		}

		input := settlement.CheckoutInput{
			Items:         make([]settlement.LineInput, len(body.Items)),
			PaymentMethod: method,
			CashAmount:    body.CashAmount,
			MemberID:      memberID,
			Actor:         actor,
			PIN:           body.PIN,
		}
		for i, line := range body.Items {
			input.Items[i] = settlement.LineInput{ProductID: line.ProductID, Quantity: line.Quantity}
		}

		receipt, err := settlementSvc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if fromSession {
			// best effort; the sale is already committed
			if clearErr := scanSvc.Clear(r.Context(), body.TerminalID); clearErr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "terminal_id", body.TerminalID), "scan.clear_failed")
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"transaction": newTransactionView(receipt.Transaction),
			"change":      receipt.Change,
			"member":      newMemberView(receipt.Member),
		})
	}
}
