package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/repo"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Repository persists escrow rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, escrow *models.Escrow) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Escrow, error)
	Update(ctx context.Context, escrow *models.Escrow) error
	CountByStatusOlderThan(ctx context.Context, status enums.EscrowStatus, cutoff time.Time) (int64, error)
	SumHeldByFreelancer(ctx context.Context, freelancerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, escrow *models.Escrow) error {
	return r.db.WithContext(ctx).Create(escrow).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *repository) FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		Where("order_id = ?", orderID).
		First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *repository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (r *repository) Update(ctx context.Context, escrow *models.Escrow) error {
	return r.db.WithContext(ctx).
		Model(&models.Escrow{}).
		Where("id = ?", escrow.ID).
		Updates(map[string]any{
			"status":       escrow.Status,
			"prior_status": escrow.PriorStatus,
			"amount_cents": escrow.AmountCents,
			"released_at":  escrow.ReleasedAt,
			"notes":        escrow.Notes,
		}).Error
}

func (r *repository) CountByStatusOlderThan(ctx context.Context, status enums.EscrowStatus, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Escrow{}).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Count(&count).Error
	return count, err
}

func (r *repository) SumHeldByFreelancer(ctx context.Context, freelancerID uuid.UUID) (int64, error) {
	var sum *int64
	err := r.db.WithContext(ctx).
		Model(&models.Escrow{}).
		Select("SUM(amount_cents)").
		Where("freelancer_id = ? AND status IN ?", freelancerID, []enums.EscrowStatus{
			enums.EscrowStatusHeld,
			enums.EscrowStatusDisputed,
			enums.EscrowStatusRefundPending,
		}).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
