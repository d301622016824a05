package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haber021/coop-kiosk-backend/api/responses"
	"github.com/haber021/coop-kiosk-backend/api/validators"
	"github.com/haber021/coop-kiosk-backend/internal/catalog"
	"github.com/haber021/coop-kiosk-backend/internal/members"
	"github.com/haber021/coop-kiosk-backend/internal/scan"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
)

type scanRFIDBody struct {
	CardNumber string `json:"card_number" validate:"required"`
	TerminalID string `json:"terminal_id" validate:"required"`
}

// ScanRFID resolves a member card and opens a scan session for the
// terminal. The session is what later authorizes member-funded checkout.
func ScanRFID(memberSvc members.Service, scanSvc scan.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body scanRFIDBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := memberSvc.ResolveByRFID(r.Context(), body.CardNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := scanSvc.Begin(r.Context(), body.TerminalID, member.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newMemberView(member))
	}
}

// ScanStatus returns the member bound to the terminal's scan session.
func ScanStatus(memberSvc members.Service, scanSvc scan.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terminalID := validators.SanitizeString(r.URL.Query().Get("terminal_id"), 64)
		if terminalID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "terminal_id is required"))
			return
		}

		memberID, err := scanSvc.Active(r.Context(), terminalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := memberSvc.GetByID(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newMemberView(member))
	}
}

type clearScanBody struct {
	TerminalID string `json:"terminal_id" validate:"required"`
}

// ClearScan drops the terminal's scan session.
func ClearScan(scanSvc scan.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body clearScanBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := scanSvc.Clear(r.Context(), body.TerminalID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// ProductByBarcode looks up an active product for the scanner gun.
func ProductByBarcode(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barcode := validators.SanitizeString(chi.URLParam(r, "barcode"), 64)
		product, err := svc.LookupByBarcode(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductView(product))
	}
}

// ProductSearch matches products by name or barcode fragment.
func ProductSearch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := validators.SanitizeString(r.URL.Query().Get("q"), 128)
		results, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductViews(results))
	}
}
