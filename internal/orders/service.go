package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/feepolicy"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TransitionHook runs inside the transition transaction after the order
// row has been updated and its history appended. A non-nil error rolls
// the whole transition back.
type TransitionHook func(ctx context.Context, tx *gorm.DB, order *models.Order, input ApplyInput) error

// Service drives the order lifecycle state machine.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	// Apply runs a transition in its own transaction.
	Apply(ctx context.Context, input ApplyInput) (*models.Order, error)
	// ApplyTx runs a transition inside a caller-owned transaction, for
	// flows that must atomically couple an order transition with other
	// writes (payment settlement, escrow release, refund settlement).
	ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.Order, error)
	// RegisterHook attaches a side effect to every successful
	// application of the given event. Hooks must be registered before
	// the service starts handling traffic.
	RegisterHook(event enums.OrderEvent, hook TransitionHook)

	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	// GetForUpdateTx row-locks the order inside a caller-owned
	// transaction so a status check stays true until the caller
	// commits.
	GetForUpdateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*models.Order, error)
	History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderStatusHistory, error)
	List(ctx context.Context, input ListInput) ([]models.Order, int64, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	fees   feepolicy.Service
	hooks  map[enums.OrderEvent][]TransitionHook
	now    func() time.Time
}

// Actor identifies who is acting on an order.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateInput carries the fields needed to open an order.
type CreateInput struct {
	ClientID         uuid.UUID
	FreelancerID     uuid.UUID
	ServicePackageID uuid.UUID
	Title            string
	Requirements     *string
	PriceCents       int64
	WorkDurationDays int
}

// ApplyInput describes one state machine event against an order.
type ApplyInput struct {
	OrderID  uuid.UUID
	Event    enums.OrderEvent
	Actor    Actor
	Reason   *string
	Metadata json.RawMessage
}

// ListInput filters the order listing for one party.
type ListInput struct {
	Actor  Actor
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	ClientID     uuid.UUID         `json:"client_id"`
	FreelancerID uuid.UUID         `json:"freelancer_id"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	Event        enums.OrderEvent  `json:"event"`
}

// OrderCreatedEvent is emitted once when an order is opened.
type OrderCreatedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	ClientID          uuid.UUID `json:"client_id"`
	FreelancerID      uuid.UUID `json:"freelancer_id"`
	ServicePackageID  uuid.UUID `json:"service_package_id"`
	PriceCents        int64     `json:"price_cents"`
	TotalPayableCents int64     `json:"total_payable_cents"`
}

// NewService builds the order lifecycle service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, fees feepolicy.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee policy required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		fees:   fees,
		hooks:  make(map[enums.OrderEvent][]TransitionHook),
		now:    time.Now,
	}, nil
}

func (s *service) RegisterHook(event enums.OrderEvent, hook TransitionHook) {
	if hook == nil {
		return
	}
	s.hooks[event] = append(s.hooks[event], hook)
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.FreelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "freelancer id required")
	}
	if input.ClientID == input.FreelancerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot order your own service")
	}
	if input.ServicePackageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service package id required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.WorkDurationDays <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "work duration must be positive")
	}

	breakdown, err := s.fees.ComputeFees(ctx, input.PriceCents)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                uuid.New(),
		ClientID:          input.ClientID,
		FreelancerID:      input.FreelancerID,
		ServicePackageID:  input.ServicePackageID,
		Title:             input.Title,
		Requirements:      input.Requirements,
		PriceCents:        breakdown.BasePrice,
		PlatformFeeCents:  breakdown.PlatformFee,
		GatewayFeeCents:   breakdown.GatewayFee,
		TotalPayableCents: breakdown.TotalPayable,
		Status:            enums.OrderStatusAwaitingPayment,
		WorkDurationDays:  input.WorkDurationDays,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ClientID, Role: enums.UserRoleClient},
			Data: OrderCreatedEvent{
				OrderID:           order.ID,
				ClientID:          order.ClientID,
				FreelancerID:      order.FreelancerID,
				ServicePackageID:  order.ServicePackageID,
				PriceCents:        order.PriceCents,
				TotalPayableCents: order.TotalPayableCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.Order, error) {
	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.ApplyTx(ctx, tx, input)
		if err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ApplyTx(ctx context.Context, tx *gorm.DB, input ApplyInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Event.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order event")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !roleAllowed(input.Event, input.Actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not drive this event")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := s.checkParty(order, input.Actor); err != nil {
		return nil, err
	}

	target, err := nextStatus(order.Status, input.Event)
	if err != nil {
		return nil, err
	}

	from := order.Status
	order.Status = target
	s.stampTransition(order, input.Event, target)

	if err := repo.UpdateStatus(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if err := repo.AppendHistory(ctx, &models.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   target,
		Event:      input.Event,
		ChangedBy:  input.Actor.UserID,
		Role:       input.Actor.Role,
		Reason:     input.Reason,
		Metadata:   input.Metadata,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role},
		Data: OrderStatusChangedEvent{
			OrderID:      order.ID,
			ClientID:     order.ClientID,
			FreelancerID: order.FreelancerID,
			FromStatus:   from,
			ToStatus:     target,
			Event:        input.Event,
		},
	}); err != nil {
		return nil, err
	}

	for _, hook := range s.hooks[input.Event] {
		if err := hook(ctx, tx, order, input); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// checkParty ensures client and freelancer actors only touch their own
// orders. Admin and system actors are unrestricted.
func (s *service) checkParty(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.UserRoleClient:
		if order.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to client")
		}
	case enums.UserRoleFreelancer:
		if order.FreelancerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to freelancer")
		}
	case enums.UserRoleAdmin, enums.UserRoleSystem:
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return nil
}

func (s *service) stampTransition(order *models.Order, event enums.OrderEvent, target enums.OrderStatus) {
	now := s.now().UTC()
	switch event {
	case enums.OrderEventFreelancerAccept:
		deadline := now.AddDate(0, 0, order.WorkDurationDays)
		order.Deadline = &deadline
	case enums.OrderEventWorkSubmitted:
		order.SubmittedAt = &now
	}
	switch target {
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
	case enums.OrderStatusCancelled:
		order.CancelledAt = &now
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := s.checkParty(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetForUpdateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if err := s.checkParty(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) History(ctx context.Context, orderID uuid.UUID, actor Actor) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, orderID, actor); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order history")
	}
	return entries, nil
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Order, int64, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	switch input.Actor.Role {
	case enums.UserRoleClient:
		return s.repo.ListByClient(ctx, input.Actor.UserID, input.Status, limit, offset)
	case enums.UserRoleFreelancer:
		return s.repo.ListByFreelancer(ctx, input.Actor.UserID, input.Status, limit, offset)
	default:
		return nil, 0, pkgerrors.New(pkgerrors.CodeForbidden, "listing requires client or freelancer role")
	}
}
