package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestEscrowMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_escrows_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS escrows",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_escrows_payment_id ON escrows (payment_id)",
		"CHECK (amount_cents > 0)",
		"prior_status escrow_status_enum",
		"DROP TABLE IF EXISTS escrows",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_ledger_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS freelancer_balances",
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CHECK (available_cents >= 0)",
		"CHECK (amount_cents <> 0)",
		"ux_ledger_entries_escrow_release",
		"WHERE entry_type = 'escrow_release'",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationScopesUniqueIndexToOnceOnlyEvents(t *testing.T) {
	content := readMigration(t, "*_create_outbox_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"ux_outbox_events_event_aggregate",
		"'payment.succeeded'",
		"'escrow.held'",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	// Repeated lifecycle events must never trip the dedup index.
	if strings.Contains(content, "'order.status_changed'") {
		t.Errorf("order.status_changed must not be part of the unique index predicate")
	}
}

func TestPlatformConfigMigrationSeedsDefaults(t *testing.T) {
	content := readMigration(t, "*_create_platform_config_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS platform_configs",
		"'platform_fee_percentage', '5', 'percent'",
		"'payment_gateway_fee_percentage', '2.5', 'percent'",
		"'withdrawal_fee_percentage', '2.5', 'percent'",
		"'withdrawal_minimum_amount', '50000', 'amount'",
		"'payment_expiry_hours', '24', 'int'",
		"ON CONFLICT (key) DO NOTHING",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
