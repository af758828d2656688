package platformconfig

import (
	"context"

	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
)

// Repository manages persistence for platform configuration rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, key string) (*models.PlatformConfig, error)
	List(ctx context.Context) ([]models.PlatformConfig, error)
	UpdateValue(ctx context.Context, key string, value string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a platform config repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, key string) (*models.PlatformConfig, error) {
	var row models.PlatformConfig
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context) ([]models.PlatformConfig, error) {
	var rows []models.PlatformConfig
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateValue(ctx context.Context, key string, value string) error {
	return r.db.WithContext(ctx).
		Model(&models.PlatformConfig{}).
		Where("key = ?", key).
		Update("value", value).Error
}
