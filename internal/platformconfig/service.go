package platformconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/money"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes typed reads plus the audited admin write path.
type Service interface {
	Percent(ctx context.Context, key string) (decimal.Decimal, error)
	Amount(ctx context.Context, key string) (int64, error)
	Int(ctx context.Context, key string) (int, error)
	List(ctx context.Context) ([]models.PlatformConfig, error)
	AdminUpdate(ctx context.Context, input AdminUpdateInput) (*models.PlatformConfig, error)
}

// AdminUpdateInput carries an audited configuration write.
type AdminUpdateInput struct {
	Key     string
	Value   string
	AdminID uuid.UUID
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires a platform config service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("platform config repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) find(ctx context.Context, key string, wantType enums.ConfigValueType) (*models.PlatformConfig, error) {
	row, err := s.repo.Find(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("config key %q not found", key))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load config")
	}
	if row.ValueType != wantType {
		return nil, pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("config key %q is %s, read as %s", key, row.ValueType, wantType))
	}
	return row, nil
}

func (s *service) Percent(ctx context.Context, key string) (decimal.Decimal, error) {
	row, err := s.find(ctx, key, enums.ConfigValueTypePercent)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := money.ParsePercent(row.Value)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse percent config")
	}
	return rate, nil
}

func (s *service) Amount(ctx context.Context, key string) (int64, error) {
	row, err := s.find(ctx, key, enums.ConfigValueTypeAmount)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseInt(row.Value, 10, 64)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse amount config")
	}
	return amount, nil
}

func (s *service) Int(ctx context.Context, key string) (int, error) {
	row, err := s.find(ctx, key, enums.ConfigValueTypeInt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(row.Value)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse int config")
	}
	return value, nil
}

func (s *service) List(ctx context.Context) ([]models.PlatformConfig, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list config")
	}
	return rows, nil
}

// ConfigUpdatedEvent is emitted on every admin configuration write.
type ConfigUpdatedEvent struct {
	Key      string `json:"key"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

func (s *service) AdminUpdate(ctx context.Context, input AdminUpdateInput) (*models.PlatformConfig, error) {
	if input.Key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config key required")
	}
	if input.Value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "config value required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	var updated *models.PlatformConfig
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.Find(ctx, input.Key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "config key not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load config")
		}
		if !row.Editable {
			return pkgerrors.New(pkgerrors.CodeForbidden, "config key is not editable")
		}
		if err := validateValue(row.ValueType, input.Value); err != nil {
			return err
		}

		oldValue := row.Value
		if err := repo.UpdateValue(ctx, input.Key, input.Value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update config")
		}
		row.Value = input.Value
		updated = row

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventConfigUpdated,
			AggregateType: enums.AggregatePlatformConfig,
			AggregateID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(input.Key)),
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.UserRoleAdmin},
			Data: ConfigUpdatedEvent{
				Key:      input.Key,
				OldValue: oldValue,
				NewValue: input.Value,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateValue(valueType enums.ConfigValueType, value string) error {
	switch valueType {
	case enums.ConfigValueTypePercent:
		if _, err := money.ParsePercent(value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percent value")
		}
	case enums.ConfigValueTypeAmount:
		amount, err := strconv.ParseInt(value, 10, 64)
		if err != nil || amount < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount must be a non-negative integer")
		}
	case enums.ConfigValueTypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "value must be an integer")
		}
	case enums.ConfigValueTypeBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "value must be a boolean")
		}
	case enums.ConfigValueTypeString:
		// any non-empty string is fine
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unknown value type %q", valueType))
	}
	return nil
}
