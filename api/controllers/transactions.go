package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haber021/coop-kiosk-backend/api/middleware"
	"github.com/haber021/coop-kiosk-backend/api/responses"
	"github.com/haber021/coop-kiosk-backend/api/validators"
	"github.com/haber021/coop-kiosk-backend/internal/transactions"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
)

// TransactionList returns sales history for staff screens. Non-staff
// callers only ever see their own transactions.
func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := listFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if actor != nil && !actor.Role.IsStaff() {
			actorID := actor.ID
			filter.MemberID = &actorID
		}

		records, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionViews(records))
	}
}

// TransactionDetail returns a single receipt by id.
func TransactionDetail(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		record, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		if actor != nil && !actor.Role.IsStaff() {
			if record.MemberID == nil || *record.MemberID != actor.ID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "receipt belongs to another member"))
				return
			}
		}

		responses.WriteSuccess(w, newTransactionView(record))
	}
}

// TransactionByNumber resolves a receipt from its printed number.
func TransactionByNumber(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := validators.SanitizeString(chi.URLParam(r, "number"), 40)
		record, err := svc.GetByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTransactionView(record))
	}
}

func listFilterFromQuery(r *http.Request) (transactions.ListFilter, error) {
	var filter transactions.ListFilter

	limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
	if err != nil {
		return filter, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset

	if raw := validators.SanitizeString(r.URL.Query().Get("member_id"), 40); raw != "" {
		memberID, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id")
		}
		filter.MemberID = &memberID
	}
	if raw := validators.SanitizeString(r.URL.Query().Get("status"), 20); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}
	if raw := validators.SanitizeString(r.URL.Query().Get("payment_method"), 20); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		filter.PaymentMethod = &method
	}
	filter.Number = validators.SanitizeString(r.URL.Query().Get("number"), 40)

	if raw := validators.SanitizeString(r.URL.Query().Get("from"), 40); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		filter.From = &from
	}
	if raw := validators.SanitizeString(r.URL.Query().Get("to"), 40); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		filter.To = &to
	}

	return filter, nil
}
