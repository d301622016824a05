package middleware

import (
	"context"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
)

type contextKey string

const (
	ctxMemberID contextKey = "member_id"
	ctxRole     contextKey = "actor_role"
	ctxActor    contextKey = "actor"
)

func MemberIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxMemberID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated member loaded by Auth.
func ActorFromContext(ctx context.Context) *models.Member {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxActor).(*models.Member); ok {
		return v
	}
	return nil
}

// WithActor injects the acting member, used by handlers under test.
func WithActor(ctx context.Context, member *models.Member) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxActor, member)
	if member != nil {
		ctx = context.WithValue(ctx, ctxMemberID, member.ID.String())
		ctx = context.WithValue(ctx, ctxRole, string(member.Role))
	}
	return ctx
}
