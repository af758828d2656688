package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Repository abstracts persistence for orders and their status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindByIDForUpdate locks the order row for the duration of the
	// enclosing transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, order *models.Order) error

	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)

	ListByClient(ctx context.Context, clientID uuid.UUID, status *enums.OrderStatus, limit, offset int) ([]models.Order, int64, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, status *enums.OrderStatus, limit, offset int) ([]models.Order, int64, error)
}
