package members

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
)

// Repository manages persistence for members and their movement trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindActiveByRFID(ctx context.Context, cardNumber string) (*models.Member, error)
	FindActiveByUsername(ctx context.Context, username string) (*models.Member, error)
	UpdatePINHash(ctx context.Context, id uuid.UUID, hash string) error
	ListBalanceMovements(ctx context.Context, memberID uuid.UUID, limit int) ([]models.BalanceMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a member repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Preload("MemberType").
		First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindActiveByRFID(ctx context.Context, cardNumber string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Preload("MemberType").
		Where("rfid_card_number = ?", cardNumber).
		Where("is_active = ?", true).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindActiveByUsername(ctx context.Context, username string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Preload("MemberType").
		Where("username = ?", username).
		Where("is_active = ?", true).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) UpdatePINHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("pin_hash", hash).Error
}

func (r *repository) ListBalanceMovements(ctx context.Context, memberID uuid.UUID, limit int) ([]models.BalanceMovement, error) {
	var movements []models.BalanceMovement
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
