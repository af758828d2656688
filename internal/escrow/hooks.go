package escrow

import (
	"context"

	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

type hookRegistrar interface {
	RegisterHook(event enums.OrderEvent, hook orders.TransitionHook)
}

// RegisterOrderHooks attaches escrow side effects to the order
// lifecycle: client approval releases the held funds to the freelancer
// and an opened dispute freezes them. Both run inside the transition
// transaction, so a failed escrow move rolls the order back too.
func RegisterOrderHooks(reg hookRegistrar, svc Service) {
	reg.RegisterHook(enums.OrderEventWorkApproved, func(ctx context.Context, tx *gorm.DB, order *models.Order, input orders.ApplyInput) error {
		_, err := svc.ReleaseForOrderTx(ctx, tx, order, input.Actor)
		return err
	})
	reg.RegisterHook(enums.OrderEventDisputeOpened, func(ctx context.Context, tx *gorm.DB, order *models.Order, input orders.ApplyInput) error {
		return svc.MarkDisputedTx(ctx, tx, order.ID, input.Actor)
	})
}
