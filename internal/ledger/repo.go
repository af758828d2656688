package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/widyatama/jasaku-backend/internal/repo"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
)

// Repository persists balances and their append-only entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// FindBalanceForUpdate locks the balance row, inserting a zero row
	// first when the freelancer has never earned.
	FindBalanceForUpdate(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error)
	FindBalance(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error)
	UpdateBalance(ctx context.Context, balance *models.FreelancerBalance) error
	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error)
	// ListDriftedBalances returns balances whose stored amount no longer
	// equals the sum of their ledger entries.
	ListDriftedBalances(ctx context.Context) ([]BalanceDrift, error)
}

// BalanceDrift is one freelancer whose balance and ledger disagree.
type BalanceDrift struct {
	FreelancerID   uuid.UUID
	AvailableCents int64
	EntrySumCents  int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBalanceForUpdate(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error) {
	seed := models.FreelancerBalance{FreelancerID: freelancerID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error
	if err != nil {
		return nil, err
	}

	var balance models.FreelancerBalance
	err = repo.LockForUpdate(r.db.WithContext(ctx)).
		Where("freelancer_id = ?", freelancerID).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) FindBalance(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error) {
	var balance models.FreelancerBalance
	err := r.db.WithContext(ctx).
		Where("freelancer_id = ?", freelancerID).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) UpdateBalance(ctx context.Context, balance *models.FreelancerBalance) error {
	return r.db.WithContext(ctx).
		Model(&models.FreelancerBalance{}).
		Where("freelancer_id = ?", balance.FreelancerID).
		Update("available_cents", balance.AvailableCents).Error
}

func (r *repository) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("freelancer_id = ?", freelancerID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var entries []models.LedgerEntry
	err = r.db.WithContext(ctx).
		Where("freelancer_id = ?", freelancerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *repository) ListDriftedBalances(ctx context.Context) ([]BalanceDrift, error) {
	var drifts []BalanceDrift
	err := r.db.WithContext(ctx).
		Table("freelancer_balances AS b").
		Select("b.freelancer_id AS freelancer_id, b.available_cents AS available_cents, COALESCE(SUM(e.amount_cents), 0) AS entry_sum_cents").
		Joins("LEFT JOIN ledger_entries e ON e.freelancer_id = b.freelancer_id").
		Group("b.freelancer_id, b.available_cents").
		Having("b.available_cents <> COALESCE(SUM(e.amount_cents), 0)").
		Scan(&drifts).Error
	if err != nil {
		return nil, err
	}
	return drifts, nil
}
