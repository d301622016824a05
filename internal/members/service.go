package members

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	pkgerrors "github.com/haber021/coop-kiosk-backend/pkg/errors"
	"github.com/haber021/coop-kiosk-backend/pkg/security"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes member account operations outside the settlement path.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ResolveByRFID(ctx context.Context, cardNumber string) (*models.Member, error)
	RefillBalance(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.Member, error)
	UtangPayment(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.Member, error)
	ListBalanceMovements(ctx context.Context, memberID uuid.UUID, limit int) ([]models.BalanceMovement, error)
	SetPIN(ctx context.Context, memberID uuid.UUID, pin string) error
}

type service struct {
	tx     txRunner
	repo   Repository
	pinCfg config.PINConfig
}

// NewService wires a member service with the provided dependencies.
func NewService(tx txRunner, repo Repository, pinCfg config.PINConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("member repository required")
	}
	return &service{tx: tx, repo: repo, pinCfg: pinCfg}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading member")
	}
	return member, nil
}

func (s *service) ResolveByRFID(ctx context.Context, cardNumber string) (*models.Member, error) {
	cardNumber = strings.TrimSpace(cardNumber)
	if cardNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card number is required")
	}
	member, err := s.repo.FindActiveByRFID(ctx, cardNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active member for this card")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving member card")
	}
	return member, nil
}

func (s *service) RefillBalance(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.Member, error) {
	if notes == "" {
		notes = "Balance refill"
	}
	var member *models.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := Credit(ctx, tx, memberID, amount, notes); err != nil {
			return err
		}
		var loadErr error
		member, loadErr = s.repo.WithTx(tx).FindByID(ctx, memberID)
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *service) UtangPayment(ctx context.Context, memberID uuid.UUID, amount decimal.Decimal, notes string) (*models.Member, error) {
	if notes == "" {
		notes = "Utang payment"
	}
	var member *models.Member
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := PayUtang(ctx, tx, memberID, amount, notes); err != nil {
			return err
		}
		var loadErr error
		member, loadErr = s.repo.WithTx(tx).FindByID(ctx, memberID)
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *service) ListBalanceMovements(ctx context.Context, memberID uuid.UUID, limit int) ([]models.BalanceMovement, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	movements, err := s.repo.ListBalanceMovements(ctx, memberID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing balance movements")
	}
	return movements, nil
}

func (s *service) SetPIN(ctx context.Context, memberID uuid.UUID, pin string) error {
	if memberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	hash, err := security.HashPIN(pin, s.pinCfg)
	if err != nil {
		if errors.Is(err, security.ErrInvalidPINFormat) {
			return pkgerrors.New(pkgerrors.CodeValidation, "pin must be a 4-digit string")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing pin")
	}
	if err := s.repo.UpdatePINHash(ctx, memberID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing pin")
	}
	return nil
}

// PatronageRateFor returns the member's rate, falling back to the shop
// default when no member type is attached.
func PatronageRateFor(member *models.Member, fallback decimal.Decimal) decimal.Decimal {
	if member != nil && member.MemberType != nil && member.MemberType.PatronageRate.IsPositive() {
		return member.MemberType.PatronageRate
	}
	return fallback
}
