package withdrawals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/repo"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Repository persists withdrawal requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	Update(ctx context.Context, withdrawal *models.Withdrawal) error
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Withdrawal, int64, error)
	ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, int64, error)
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a withdrawals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	err := repo.LockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&withdrawal).Error
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repository) Update(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ?", withdrawal.ID).
		Updates(map[string]any{
			"status":                withdrawal.Status,
			"admin_id":              withdrawal.AdminID,
			"admin_note":            withdrawal.AdminNote,
			"transfer_evidence_url": withdrawal.TransferEvidenceURL,
			"processed_at":          withdrawal.ProcessedAt,
		}).Error
}

func (r *repository) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Withdrawal, int64, error) {
	return r.list(ctx, "freelancer_id = ?", freelancerID, limit, offset)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.WithdrawalStatus, limit, offset int) ([]models.Withdrawal, int64, error) {
	return r.list(ctx, "status = ?", status, limit, offset)
}

func (r *repository) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("status = ? AND created_at < ?", enums.WithdrawalStatusPending, cutoff).
		Count(&count).Error
	return count, err
}

func (r *repository) list(ctx context.Context, cond string, value any, limit, offset int) ([]models.Withdrawal, int64, error) {
	scope := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.Withdrawal{}).
			Where(cond, value)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var withdrawals []models.Withdrawal
	err := scope().
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&withdrawals).Error
	if err != nil {
		return nil, 0, err
	}
	return withdrawals, total, nil
}
