package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haber021/coop-kiosk-backend/pkg/db/models"
	"github.com/haber021/coop-kiosk-backend/pkg/enums"
)

// ListFilter narrows transaction listings.
type ListFilter struct {
	MemberID      *uuid.UUID
	Status        *enums.TransactionStatus
	PaymentMethod *enums.PaymentMethod
	Number        string
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// Repository manages persistence for transactions and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transaction *models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByNumber(ctx context.Context, number string) (*models.Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]models.Transaction, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, notes string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transaction *models.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Member").
		First(&transaction, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Member").
		First(&transaction, "transaction_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Transaction, error) {
	qb := r.db.WithContext(ctx).Model(&models.Transaction{}).Preload("Items")
	if filter.MemberID != nil {
		qb = qb.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.PaymentMethod != nil {
		qb = qb.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.Number != "" {
		qb = qb.Where("transaction_number = ?", filter.Number)
	}
	if filter.From != nil {
		qb = qb.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		qb = qb.Where("created_at < ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var records []models.Transaction
	if err := qb.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// MarkRefunded flips a completed sale to cancelled exactly once. The
// status guard in the WHERE clause makes a double refund a no-op at the
// database level; callers check RowsAffected.
func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, notes string) error {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", id).
		Where("status = ?", enums.TransactionStatusCompleted).
		Updates(map[string]any{
			"status":    enums.TransactionStatusCancelled,
			"is_refund": true,
			"notes":     notes,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
