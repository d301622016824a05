package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/internal/members"
	pkgauth "github.com/haber021/coop-kiosk-backend/pkg/auth"
	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid username or pin"

// LoginRequest carries kiosk login credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	PIN      string `json:"pin" validate:"required"`
}

// LoginResponse carries the minted token and the member it represents.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Member      *models.Member `json:"member"`
}

// Service authenticates kiosk actors.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	AuthorizeMemberSpend(ctx context.Context, actor *models.Member, target *models.Member, pin string) error
}

type service struct {
	repo   members.Repository
	jwtCfg config.JWTConfig
}

// NewService wires the auth service.
func NewService(repo members.Repository, jwtCfg config.JWTConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("member repository required")
	}
	return &service{repo: repo, jwtCfg: jwtCfg}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(strings.ToLower(req.Username))
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	member, err := s.repo.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup member")
	}
	if member.PINHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPIN(req.PIN, *member.PINHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := time.Now().UTC()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		MemberID: member.ID,
		Role:     member.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		Member:      member,
	}, nil
}

// AuthorizeMemberSpend decides whether a member-funded payment may
// proceed. Staff operating the till vouch for the member, so admin and
// cashier actors skip the PIN. A member paying for themselves must
// present their own 4-digit PIN.
func (s *service) AuthorizeMemberSpend(ctx context.Context, actor *models.Member, target *models.Member, pin string) error {
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "member is required")
	}
	if actor != nil && actor.Role.IsStaff() {
		return nil
	}

	if target.PINHash == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "member has no pin set; ask a cashier to assist")
	}
	if err := security.ValidatePINFormat(pin); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pin must be a 4-digit string")
	}
	valid, err := security.VerifyPIN(pin, *target.PINHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "incorrect pin")
	}
	return nil
}
