package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/repo"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Repository persists refund requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, refund *models.Refund) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	HasActiveByPayment(ctx context.Context, paymentID uuid.UUID) (bool, error)
	Update(ctx context.Context, refund *models.Refund) error
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Refund, int64, error)
	ListByStatus(ctx context.Context, status enums.RefundStatus, limit, offset int) ([]models.Refund, int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refunds repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&refund).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&refund).Error
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *repository) HasActiveByPayment(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("payment_id = ? AND status IN ?", paymentID, []enums.RefundStatus{
			enums.RefundStatusPending,
			enums.RefundStatusApproved,
			enums.RefundStatusProcessing,
		}).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Update(ctx context.Context, refund *models.Refund) error {
	return r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where("id = ?", refund.ID).
		Updates(map[string]any{
			"status":            refund.Status,
			"admin_id":          refund.AdminID,
			"admin_note":        refund.AdminNote,
			"gateway_refund_id": refund.GatewayRefundID,
			"processed_at":      refund.ProcessedAt,
			"settled_at":        refund.SettledAt,
		}).Error
}

func (r *repository) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Refund, int64, error) {
	return r.list(ctx, "client_id = ?", clientID, limit, offset)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.RefundStatus, limit, offset int) ([]models.Refund, int64, error) {
	return r.list(ctx, "status = ?", status, limit, offset)
}

func (r *repository) list(ctx context.Context, cond string, arg any, limit, offset int) ([]models.Refund, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Refund{}).
		Where(cond, arg).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var refunds []models.Refund
	err = r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&refunds).Error
	if err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}
