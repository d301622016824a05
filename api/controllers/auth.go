package controllers

import (
	"net/http"

	"github.com/haber021/coop-kiosk-backend/api/responses"
	"github.com/haber021/coop-kiosk-backend/api/validators"
	"github.com/haber021/coop-kiosk-backend/internal/auth"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
)

// AuthLogin authenticates a staff member or member by username and PIN.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"access_token": result.AccessToken,
			"expires_at":   result.ExpiresAt,
			"member":       newMemberView(result.Member),
		})
	}
}
