package platformconfig

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

func setupConfigTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS platform_configs (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  value_type TEXT NOT NULL,
  description TEXT,
  editable INTEGER NOT NULL DEFAULT 1,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)

	seed := []models.PlatformConfig{
		{Key: models.ConfigKeyPlatformFeePercent, Value: "5", ValueType: enums.ConfigValueTypePercent, Editable: true},
		{Key: models.ConfigKeyWithdrawalMinimum, Value: "50000", ValueType: enums.ConfigValueTypeAmount, Editable: true},
		{Key: models.ConfigKeyPaymentExpiryHours, Value: "24", ValueType: enums.ConfigValueTypeInt, Editable: true},
		{Key: "ledger_currency", Value: "idr", ValueType: enums.ConfigValueTypeString, Editable: false},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}
	return db
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.db)
}

func newConfigFixture(t *testing.T) (Service, *stubOutboxPublisher, *gorm.DB) {
	t.Helper()
	db := setupConfigTestDB(t)
	events := &stubOutboxPublisher{}
	svc, err := NewService(NewRepository(db), dbTxRunner{db: db}, events)
	require.NoError(t, err)
	return svc, events, db
}

func TestTypedReads(t *testing.T) {
	svc, _, _ := newConfigFixture(t)
	ctx := context.Background()

	rate, err := svc.Percent(ctx, models.ConfigKeyPlatformFeePercent)
	require.NoError(t, err)
	assert.Equal(t, "5", rate.String())

	minimum, err := svc.Amount(ctx, models.ConfigKeyWithdrawalMinimum)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), minimum)

	hours, err := svc.Int(ctx, models.ConfigKeyPaymentExpiryHours)
	require.NoError(t, err)
	assert.Equal(t, 24, hours)
}

func TestTypedReadRejectsWrongValueType(t *testing.T) {
	svc, _, _ := newConfigFixture(t)

	_, err := svc.Percent(context.Background(), models.ConfigKeyWithdrawalMinimum)
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeInternal, coded.Code())
}

func TestTypedReadUnknownKey(t *testing.T) {
	svc, _, _ := newConfigFixture(t)

	_, err := svc.Amount(context.Background(), "no_such_key")
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestAdminUpdatePersistsAndEmits(t *testing.T) {
	svc, events, db := newConfigFixture(t)
	adminID := uuid.New()

	updated, err := svc.AdminUpdate(context.Background(), AdminUpdateInput{
		Key:     models.ConfigKeyPlatformFeePercent,
		Value:   "7.5",
		AdminID: adminID,
	})
	require.NoError(t, err)
	assert.Equal(t, "7.5", updated.Value)

	var row models.PlatformConfig
	require.NoError(t, db.Where("key = ?", models.ConfigKeyPlatformFeePercent).First(&row).Error)
	assert.Equal(t, "7.5", row.Value)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, enums.EventConfigUpdated, event.EventType)
	assert.Equal(t, enums.AggregatePlatformConfig, event.AggregateType)
	payload, ok := event.Data.(ConfigUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, "5", payload.OldValue)
	assert.Equal(t, "7.5", payload.NewValue)
}

func TestAdminUpdateEmitsStableAggregateID(t *testing.T) {
	svc, events, _ := newConfigFixture(t)
	adminID := uuid.New()

	for _, value := range []string{"6", "7"} {
		_, err := svc.AdminUpdate(context.Background(), AdminUpdateInput{
			Key:     models.ConfigKeyPlatformFeePercent,
			Value:   value,
			AdminID: adminID,
		})
		require.NoError(t, err)
	}

	require.Len(t, events.events, 2)
	assert.Equal(t, events.events[0].AggregateID, events.events[1].AggregateID)
}

func TestAdminUpdateValidatesValueAgainstType(t *testing.T) {
	svc, events, _ := newConfigFixture(t)

	_, err := svc.AdminUpdate(context.Background(), AdminUpdateInput{
		Key:     models.ConfigKeyWithdrawalMinimum,
		Value:   "not-a-number",
		AdminID: uuid.New(),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
	assert.Empty(t, events.events)
}

func TestAdminUpdateRejectsNonEditableKey(t *testing.T) {
	svc, _, _ := newConfigFixture(t)

	_, err := svc.AdminUpdate(context.Background(), AdminUpdateInput{
		Key:     "ledger_currency",
		Value:   "usd",
		AdminID: uuid.New(),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())
}

func TestAdminUpdateRequiresAdminIdentity(t *testing.T) {
	svc, _, _ := newConfigFixture(t)

	_, err := svc.AdminUpdate(context.Background(), AdminUpdateInput{
		Key:   models.ConfigKeyPlatformFeePercent,
		Value: "6",
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
}
