package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/haber021/coop-kiosk-backend/api/responses"
	pkgauth "github.com/haber021/coop-kiosk-backend/pkg/auth"
	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"

	"github.com/google/uuid"
)

// MemberLoader resolves the acting member record from its token subject.
type MemberLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
}

// Auth validates a bearer token, loads the acting member, and seeds the
// request context. Inactive members are rejected even with a valid token.
func Auth(cfg config.JWTConfig, loader MemberLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			member, err := loader.FindByID(r.Context(), claims.MemberID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown member"))
				return
			}
			if !member.IsActive {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "member is deactivated"))
				return
			}

			ctx := WithActor(r.Context(), member)

			if logg != nil {
				ctx = logg.WithMemberID(ctx, member.ID.String())
				ctx = logg.WithActorRole(ctx, string(member.Role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
